package crypto

import (
	"fmt"

	"github.com/capsulehq/timecapsule/capsule/errs"
)

// envelopeVersion identifies the stored-object layout.
const envelopeVersion = 1

// envelopeOverhead is the non-ciphertext size of an envelope.
const envelopeOverhead = 1 + SaltSize + NonceSize

// EncodeEnvelope serializes a payload into the stored-object layout.
// Format:
//
//	1 byte: version
//	32 bytes: salt
//	24 bytes: nonce
//	N bytes: ciphertext (includes the AEAD tag)
//
// Salt and nonce are public; carrying them with the ciphertext is what lets
// a later reader re-derive the key from the ledger-recorded identifiers.
func EncodeEnvelope(p EncryptedPayload) ([]byte, error) {
	if len(p.Salt) != SaltSize {
		return nil, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: envelope salt must be %d bytes, got %d", SaltSize, len(p.Salt)))
	}
	if len(p.Nonce) != NonceSize {
		return nil, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: envelope nonce must be %d bytes, got %d", NonceSize, len(p.Nonce)))
	}

	out := make([]byte, 0, envelopeOverhead+len(p.Ciphertext))
	out = append(out, envelopeVersion)
	out = append(out, p.Salt...)
	out = append(out, p.Nonce...)
	return append(out, p.Ciphertext...), nil
}

// DecodeEnvelope splits a stored object back into salt, nonce and
// ciphertext. The plaintext content hash is not stored and stays zero.
func DecodeEnvelope(data []byte) (EncryptedPayload, error) {
	if len(data) < envelopeOverhead {
		return EncryptedPayload{}, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: envelope too short: %d bytes", len(data)))
	}
	if data[0] != envelopeVersion {
		return EncryptedPayload{}, errs.New(errs.KindValidation,
			fmt.Sprintf("crypto: unsupported envelope version %d", data[0]))
	}

	salt := make([]byte, SaltSize)
	copy(salt, data[1:1+SaltSize])
	nonce := make([]byte, NonceSize)
	copy(nonce, data[1+SaltSize:envelopeOverhead])
	ciphertext := make([]byte, len(data)-envelopeOverhead)
	copy(ciphertext, data[envelopeOverhead:])

	return EncryptedPayload{Ciphertext: ciphertext, Nonce: nonce, Salt: salt}, nil
}
