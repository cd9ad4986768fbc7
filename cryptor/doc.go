// Package cryptor provides symmetric encryption strategies for the
// instantauth engine.
//
// Every cryptor encrypts at two granularities. The global layer is keyed by
// the shared secret alone; the data layer is keyed by the shared secret and a
// per-session key. Keys are derived with HKDF-SHA256 under distinct info
// labels, so a global ciphertext never opens as a data ciphertext and vice
// versa. Ciphertexts carry a random nonce prefix and authentication tag;
// tampered or foreign input fails with [ErrDecrypt].
//
// [PlainCryptor] is the identity strategy for deployments where the
// transport already provides confidentiality, and for embedded-key verifiers
// that must read the payload before any session is known.
package cryptor
