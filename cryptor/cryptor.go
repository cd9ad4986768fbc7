package cryptor

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrDecrypt is returned when a ciphertext does not open under the given keys.
	ErrDecrypt = errors.New("cryptor: decryption failed")
	// ErrEmptySecret is returned when the shared secret is empty.
	ErrEmptySecret = errors.New("cryptor: empty secret key")
)

const (
	infoGlobal = "instantauth global v1"
	infoData   = "instantauth data v1"
)

// deriveKey expands secret and, for the data layer, the session key into n
// bytes of key material.
func deriveKey(secretKey, key, info string, n int) ([]byte, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}
	var salt []byte
	if key != "" {
		salt = []byte(key)
	}
	r := hkdf.New(sha256.New, []byte(secretKey), salt, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlainCryptor leaves every layer unencrypted.
type PlainCryptor struct{}

func passThrough(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// EncryptGlobal implements instantauth.Cryptor.
func (PlainCryptor) EncryptGlobal(blob []byte, _ string) ([]byte, error) {
	return passThrough(blob), nil
}

// DecryptGlobal implements instantauth.Cryptor.
func (PlainCryptor) DecryptGlobal(blob []byte, _ string) ([]byte, error) {
	return passThrough(blob), nil
}

// EncryptData implements instantauth.Cryptor.
func (PlainCryptor) EncryptData(payload []byte, _, _ string) ([]byte, error) {
	return passThrough(payload), nil
}

// DecryptData implements instantauth.Cryptor.
func (PlainCryptor) DecryptData(payload []byte, _, _ string) ([]byte, error) {
	return passThrough(payload), nil
}

// DerivedContext implements instantauth.DerivedContexter.
func (PlainCryptor) DerivedContext() map[string]any {
	return map[string]any{"cryptor": "plain"}
}
