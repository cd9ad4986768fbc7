package session

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Record is one session: a public key that identifies it on the wire and the
// private key that confirms it. Times are Unix seconds; ExpiresAt 0 means the
// record does not expire by itself.
type Record struct {
	ID         string
	PublicKey  string
	PrivateKey string
	Label      string
	CreatedAt  int64
	ExpiresAt  int64
}

// Expired reports whether r has an expiry at or before now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt > 0 && r.ExpiresAt <= now.Unix()
}

const privateKeyBytes = 32

// Provision creates a fresh record with a random UUID public key and a
// random 32-byte private key. ttl <= 0 creates a record without expiry.
func Provision(ttl time.Duration, label string) (*Record, error) {
	return provisionAt(time.Now(), ttl, label)
}

func provisionAt(now time.Time, ttl time.Duration, label string) (*Record, error) {
	if len(label) > maxFieldLen {
		return nil, ErrFieldTooLong
	}

	raw := make([]byte, privateKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         uuid.NewString(),
		PublicKey:  uuid.NewString(),
		PrivateKey: base64.RawURLEncoding.EncodeToString(raw),
		Label:      label,
		CreatedAt:  now.Unix(),
	}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl).Unix()
	}
	return rec, nil
}
