package cryptor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// aeadCryptor seals each layer as nonce || AEAD(plaintext). The layer's info
// label doubles as additional data.
type aeadCryptor struct {
	name    string
	keySize int
	newAEAD func(key []byte) (cipher.AEAD, error)
}

func (c *aeadCryptor) seal(plaintext []byte, secretKey, key, info string) ([]byte, error) {
	k, err := deriveKey(secretKey, key, info, c.keySize)
	if err != nil {
		return nil, err
	}
	aead, err := c.newAEAD(k)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(info)), nil
}

func (c *aeadCryptor) open(ciphertext []byte, secretKey, key, info string) ([]byte, error) {
	k, err := deriveKey(secretKey, key, info, c.keySize)
	if err != nil {
		return nil, err
	}
	aead, err := c.newAEAD(k)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrDecrypt
	}
	ns := aead.NonceSize()
	out, err := aead.Open(nil, ciphertext[:ns], ciphertext[ns:], []byte(info))
	if err != nil {
		return nil, ErrDecrypt
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// EncryptGlobal implements instantauth.Cryptor.
func (c *aeadCryptor) EncryptGlobal(blob []byte, secretKey string) ([]byte, error) {
	return c.seal(blob, secretKey, "", infoGlobal)
}

// DecryptGlobal implements instantauth.Cryptor.
func (c *aeadCryptor) DecryptGlobal(blob []byte, secretKey string) ([]byte, error) {
	return c.open(blob, secretKey, "", infoGlobal)
}

// EncryptData implements instantauth.Cryptor.
func (c *aeadCryptor) EncryptData(payload []byte, secretKey, key string) ([]byte, error) {
	return c.seal(payload, secretKey, key, infoData)
}

// DecryptData implements instantauth.Cryptor.
func (c *aeadCryptor) DecryptData(payload []byte, secretKey, key string) ([]byte, error) {
	return c.open(payload, secretKey, key, infoData)
}

// DerivedContext implements instantauth.DerivedContexter.
func (c *aeadCryptor) DerivedContext() map[string]any {
	return map[string]any{"cryptor": c.name}
}

// AESCryptor is AES-GCM with a 128, 192 or 256 bit key.
type AESCryptor struct {
	aeadCryptor
}

// NewAESCryptor returns an AES-GCM cryptor. bits must be 128, 192 or 256.
func NewAESCryptor(bits int) (*AESCryptor, error) {
	switch bits {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("cryptor: unsupported AES key size %d", bits)
	}
	return &AESCryptor{aeadCryptor{
		name:    fmt.Sprintf("aes%d", bits),
		keySize: bits / 8,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(block)
		},
	}}, nil
}

// XChaChaCryptor is XChaCha20-Poly1305 with a 24-byte random nonce.
type XChaChaCryptor struct {
	aeadCryptor
}

// NewXChaChaCryptor returns an XChaCha20-Poly1305 cryptor.
func NewXChaChaCryptor() *XChaChaCryptor {
	return &XChaChaCryptor{aeadCryptor{
		name:    "xchacha20poly1305",
		keySize: chacha20poly1305.KeySize,
		newAEAD: chacha20poly1305.NewX,
	}}
}
