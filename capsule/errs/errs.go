// Package errs defines the structured error type shared by all capsule
// packages. Callers branch on Kind via IsKind/errors.As rather than matching
// error strings; Error() text is for humans and may change.
package errs

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindValidation covers malformed inputs caught before any I/O:
	// syntactically invalid CIDs, wrong nonce or salt lengths.
	KindValidation Kind = "Validation"
	// KindAuthentication is an AEAD tag verification failure.
	KindAuthentication Kind = "Authentication"
	// KindHashMismatch means downloaded bytes failed the integrity check.
	KindHashMismatch Kind = "HashMismatch"
	// KindNotFound means the ledger has no object for the requested id.
	KindNotFound Kind = "NotFound"
	// KindUnsupportedCondition is an unrecognized unlock-condition tag.
	KindUnsupportedCondition Kind = "UnsupportedCondition"
	// KindAuthorization is a non-owner unlock attempt.
	KindAuthorization Kind = "Authorization"
	// KindPrecondition is an unlock attempt before the condition holds.
	KindPrecondition Kind = "Precondition"
	// KindTransientIO covers network and timeout failures that the content
	// store retries internally before surfacing.
	KindTransientIO Kind = "TransientIO"
)

// Error carries a Kind and the original cause across package boundaries so
// an outer layer can render a message without inspecting internals.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error with no cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a kind and message to cause. A nil cause behaves like New.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
