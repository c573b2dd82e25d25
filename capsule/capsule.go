package capsule

import (
	"fmt"
	"time"

	"github.com/capsulehq/timecapsule/capsule/crypto"
)

// Capsule is a ledger-recorded entry naming an owner, a content-address
// pointer to ciphertext, the stored object's hash, and an unlock condition.
// It is a value type; Unlocked only ever transitions false to true and the
// condition's variant never changes after creation.
type Capsule struct {
	ID          string
	Owner       string
	CID         string
	ContentHash []byte
	Condition   UnlockCondition
	CreatedAt   int64
	Unlocked    bool
}

// UnlockCondition is the tagged variant gating a capsule's plaintext:
// TimeLock, ThresholdApproval or Paid.
type UnlockCondition interface {
	isUnlockCondition()
}

// TimeLock releases the capsule once the wall clock passes UnlockTimeMs.
type TimeLock struct {
	UnlockTimeMs int64
}

// ThresholdApproval releases the capsule once enough distinct identities
// have approved.
type ThresholdApproval struct {
	Threshold int
	Approvals []string
}

// Paid releases the capsule once the recorded price has been paid.
type Paid struct {
	Price uint64
	Paid  bool
}

func (TimeLock) isUnlockCondition()          {}
func (ThresholdApproval) isUnlockCondition() {}
func (Paid) isUnlockCondition()              {}

// EncryptedPayload is re-exported for the surface consumed by outer layers.
type EncryptedPayload = crypto.EncryptedPayload

// UnlockResult is the outcome of a successful unlock.
type UnlockResult struct {
	CapsuleID   string
	Content     []byte
	ContentType string
	CID         string
}

// Status is a point-in-time unlock decision with a human-readable reason.
type Status struct {
	CanUnlock bool
	Message   string
}

// Status computes whether the capsule can be unlocked at now. Pure; no I/O.
func (c Capsule) Status(now time.Time) Status {
	switch cond := c.Condition.(type) {
	case TimeLock:
		if c.Unlocked {
			return Status{Message: "already unlocked"}
		}
		if now.UnixMilli() >= cond.UnlockTimeMs {
			return Status{CanUnlock: true, Message: "ready to unlock"}
		}
		at := time.UnixMilli(cond.UnlockTimeMs).UTC().Format(time.RFC3339)
		return Status{Message: fmt.Sprintf("locked until %s", at)}
	case ThresholdApproval:
		if len(cond.Approvals) >= cond.Threshold {
			return Status{CanUnlock: true, Message: "approval threshold met"}
		}
		return Status{Message: fmt.Sprintf("%d of %d approvals", len(cond.Approvals), cond.Threshold)}
	case Paid:
		if cond.Paid {
			return Status{CanUnlock: true, Message: "payment received"}
		}
		return Status{Message: fmt.Sprintf("awaiting payment of %d", cond.Price)}
	default:
		return Status{Message: "unknown unlock condition"}
	}
}

// unlockTimestamp is the timestamp fed into key derivation: the unlock time
// for time locks, zero for conditions with no time component. Sealing and
// unlocking must agree on this rule or derived keys will not match.
func unlockTimestamp(cond UnlockCondition) int64 {
	if tl, ok := cond.(TimeLock); ok {
		return tl.UnlockTimeMs
	}
	return 0
}
