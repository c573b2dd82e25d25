package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/blake3"

	"github.com/capsulehq/timecapsule/capsule/errs"
)

const (
	// NonceSize is the XChaCha20-Poly1305 nonce size.
	NonceSize = chacha20poly1305.NonceSizeX
	// HashSize is the BLAKE3-256 content hash size.
	HashSize = 32
)

// EncryptedPayload is everything one Encrypt call produces. Nonce and Salt
// are public and must travel with the ciphertext; ContentHash is the BLAKE3
// hash of the plaintext.
type EncryptedPayload struct {
	Ciphertext  []byte
	Nonce       []byte
	Salt        []byte
	ContentHash [HashSize]byte
}

// HashContent computes the BLAKE3-256 hash of content.
func HashContent(content []byte) [HashSize]byte {
	return blake3.Sum256(content)
}

// VerifyContentHash reports whether content hashes to expected.
func VerifyContentHash(content []byte, expected [HashSize]byte) bool {
	return blake3.Sum256(content) == expected
}

// Encrypt seals plaintext under a key derived from the capsule identifiers.
// A fresh random salt and nonce are generated per call.
func Encrypt(plaintext []byte, owner, capsuleID string, unlockTimeMs int64) (EncryptedPayload, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return EncryptedPayload{}, fmt.Errorf("crypto: generate salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedPayload{}, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	key, err := DeriveKey(owner, capsuleID, unlockTimeMs, salt)
	if err != nil {
		return EncryptedPayload{}, err
	}
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return EncryptedPayload{}, err
	}

	return EncryptedPayload{
		Ciphertext:  aead.Seal(nil, nonce, plaintext, nil),
		Nonce:       nonce,
		Salt:        salt,
		ContentHash: HashContent(plaintext),
	}, nil
}

// Decrypt re-derives the key and opens ciphertext. It fails with an
// Authentication error when the tag does not verify (wrong key, wrong
// identifiers, or tampered ciphertext/nonce) and never returns data in that
// case. Wrong nonce or salt lengths fail with a Validation error.
func Decrypt(ciphertext, nonce []byte, owner, capsuleID string, unlockTimeMs int64, salt []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: nonce must be %d bytes, got %d", NonceSize, len(nonce)))
	}
	key, err := DeriveKey(owner, capsuleID, unlockTimeMs, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindAuthentication, "crypto: decryption failed", err)
	}
	return plaintext, nil
}
