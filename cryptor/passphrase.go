package cryptor

import (
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	minPassphraseMemoryKB uint32 = 8 * 1024
	minPassphraseBytes           = 10
	minPassphraseSalt            = 16
	minSecretBytes        uint32 = 16
)

// PassphraseParams tunes the Argon2id stretch used by SecretFromPassphrase.
type PassphraseParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultPassphraseParams returns 64 MiB, 3 passes, 2 lanes and a 32-byte secret.
func DefaultPassphraseParams() PassphraseParams {
	return PassphraseParams{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		KeyLength:   32,
	}
}

func (p PassphraseParams) validate() error {
	if p.Memory < minPassphraseMemoryKB {
		return errors.New("cryptor: passphrase memory must be >= 8192 KB")
	}
	if p.Time < 1 {
		return errors.New("cryptor: passphrase time must be >= 1")
	}
	if p.Parallelism < 1 {
		return errors.New("cryptor: passphrase parallelism must be >= 1")
	}
	if p.KeyLength < minSecretBytes {
		return errors.New("cryptor: passphrase key length must be >= 16")
	}
	return nil
}

// SecretFromPassphrase stretches a human passphrase into a shared secret with
// Argon2id. Every party that must share the secret needs the same passphrase,
// salt and params. The result is unpadded base64url.
func SecretFromPassphrase(passphrase string, salt []byte, p PassphraseParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if len(passphrase) < minPassphraseBytes {
		return "", errors.New("cryptor: passphrase must be at least 10 bytes")
	}
	if len(salt) < minPassphraseSalt {
		return "", errors.New("cryptor: passphrase salt must be at least 16 bytes")
	}

	key := argon2.IDKey([]byte(passphrase), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return base64.RawURLEncoding.EncodeToString(key), nil
}
