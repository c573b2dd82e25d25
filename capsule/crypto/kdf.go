package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/capsulehq/timecapsule/capsule/errs"
)

const (
	// KeySize is the XChaCha20-Poly1305 key size.
	KeySize = 32
	// SaltSize is the key-derivation salt size.
	SaltSize = 32
)

// kdfInfo is the fixed domain-separation context. Changing it changes every
// derived key, so it is versioned.
const kdfInfo = "timecapsule/v1 content key"

// DeriveKey derives the capsule content key from the owner identity, the
// capsule id, the unlock timestamp and a salt using HKDF-SHA256.
//
// The same inputs always yield the same key. Different salts yield
// independent keys even for identical identifiers, which keeps two capsules
// with colliding ids and timestamps cryptographically unlinkable.
//
// Deriving from a public owner address does not by itself prevent early
// decryption by anyone who knows the identifiers; access control comes from
// the ledger gating when the ciphertext and cid are exposed.
func DeriveKey(owner, capsuleID string, unlockTimeMs int64, salt []byte) ([KeySize]byte, error) {
	var key [KeySize]byte
	if owner == "" {
		return key, errs.New(errs.KindValidation, "crypto: owner identity is empty")
	}
	if capsuleID == "" {
		return key, errs.New(errs.KindValidation, "crypto: capsule id is empty")
	}
	if len(salt) != SaltSize {
		return key, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: salt must be %d bytes, got %d", SaltSize, len(salt)))
	}

	// Length-prefixed fields so (owner="ab", id="c") never collides with
	// (owner="a", id="bc").
	secret := make([]byte, 0, 8+len(owner)+8+len(capsuleID)+8)
	secret = appendLenPrefixed(secret, []byte(owner))
	secret = appendLenPrefixed(secret, []byte(capsuleID))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(unlockTimeMs))
	secret = append(secret, ts[:]...)

	hk := hkdf.New(sha256.New, secret, salt, []byte(kdfInfo))
	if _, err := io.ReadFull(hk, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

func appendLenPrefixed(dst, field []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(field)))
	dst = append(dst, n[:]...)
	return append(dst, field...)
}
