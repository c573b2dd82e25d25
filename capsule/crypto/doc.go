// Package crypto implements the capsule encryption protocol.
//
// Design goals:
//   - Deterministic, domain-separated key derivation via HKDF-SHA256
//   - AEAD encryption via XChaCha20-Poly1305 (24-byte nonces, safe for
//     randomly generated nonces at capsule volumes)
//   - BLAKE3-256 content hashing for end-to-end integrity, independent of
//     the storage layer's addressing
//   - A self-describing envelope so salt and nonce travel with the
//     ciphertext; both are public values
package crypto
