package cryptor

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/secretbox"
)

const secretboxNonceSize = 24

// SecretboxCryptor seals each layer with NaCl secretbox
// (XSalsa20-Poly1305). The output is nonce || box.
type SecretboxCryptor struct{}

func secretboxKey(secretKey, key, info string) (*[32]byte, error) {
	k, err := deriveKey(secretKey, key, info, 32)
	if err != nil {
		return nil, err
	}
	var out [32]byte
	copy(out[:], k)
	return &out, nil
}

func secretboxSeal(plaintext []byte, secretKey, key, info string) ([]byte, error) {
	k, err := secretboxKey(secretKey, key, info)
	if err != nil {
		return nil, err
	}
	var nonce [secretboxNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, k), nil
}

func secretboxOpen(box []byte, secretKey, key, info string) ([]byte, error) {
	k, err := secretboxKey(secretKey, key, info)
	if err != nil {
		return nil, err
	}
	if len(box) < secretboxNonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [secretboxNonceSize]byte
	copy(nonce[:], box[:secretboxNonceSize])
	out, ok := secretbox.Open(nil, box[secretboxNonceSize:], &nonce, k)
	if !ok {
		return nil, ErrDecrypt
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// EncryptGlobal implements instantauth.Cryptor.
func (SecretboxCryptor) EncryptGlobal(blob []byte, secretKey string) ([]byte, error) {
	return secretboxSeal(blob, secretKey, "", infoGlobal)
}

// DecryptGlobal implements instantauth.Cryptor.
func (SecretboxCryptor) DecryptGlobal(blob []byte, secretKey string) ([]byte, error) {
	return secretboxOpen(blob, secretKey, "", infoGlobal)
}

// EncryptData implements instantauth.Cryptor.
func (SecretboxCryptor) EncryptData(payload []byte, secretKey, key string) ([]byte, error) {
	return secretboxSeal(payload, secretKey, key, infoData)
}

// DecryptData implements instantauth.Cryptor.
func (SecretboxCryptor) DecryptData(payload []byte, secretKey, key string) ([]byte, error) {
	return secretboxOpen(payload, secretKey, key, infoData)
}

// DerivedContext implements instantauth.DerivedContexter.
func (SecretboxCryptor) DerivedContext() map[string]any {
	return map[string]any{"cryptor": "secretbox"}
}
