package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotRecord is returned when a handler is given a session value it did not
// produce.
var ErrNotRecord = errors.New("session: value is not a *Record")

func asRecord(sess any) (*Record, error) {
	switch r := sess.(type) {
	case *Record:
		if r == nil {
			return nil, ErrNotRecord
		}
		return r, nil
	case Record:
		return &r, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotRecord, sess)
	}
}

// Handler resolves sessions from a Store. Sessions it returns are *Record.
//
// With a positive SlidingTTL every successful lookup pushes the Redis expiry
// forward, clamped to the record's own ExpiresAt.
type Handler struct {
	store      *Store
	slidingTTL time.Duration
}

// NewHandler returns a Handler over store.
func NewHandler(store *Store, slidingTTL time.Duration) *Handler {
	return &Handler{store: store, slidingTTL: slidingTTL}
}

// SessionFromPublicKey implements instantauth.SessionHandler.
func (h *Handler) SessionFromPublicKey(ctx context.Context, publicKey string) (any, error) {
	rec, err := h.store.GetByPublicKey(ctx, publicKey)
	if err != nil {
		return nil, err
	}

	if h.slidingTTL > 0 {
		ttl := h.slidingTTL
		if rec.ExpiresAt > 0 {
			remaining := time.Unix(rec.ExpiresAt, 0).Sub(h.store.now())
			if remaining < ttl {
				ttl = remaining
			}
		}
		if err := h.store.Touch(ctx, publicKey, ttl); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// PrivateKey implements instantauth.SessionHandler.
func (h *Handler) PrivateKey(sess any) (string, error) {
	rec, err := asRecord(sess)
	if err != nil {
		return "", err
	}
	return rec.PrivateKey, nil
}

// PublicKey implements instantauth.SessionHandler.
func (h *Handler) PublicKey(sess any) (string, error) {
	rec, err := asRecord(sess)
	if err != nil {
		return "", err
	}
	return rec.PublicKey, nil
}

// MemoryHandler keeps records in a map. It is safe for concurrent use.
type MemoryHandler struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryHandler returns an empty MemoryHandler.
func NewMemoryHandler() *MemoryHandler {
	return &MemoryHandler{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Add stores rec, replacing any record with the same public key.
func (h *MemoryHandler) Add(rec *Record) error {
	if rec == nil || !ValidPublicKey(rec.PublicKey) {
		return ErrInvalidPublicKey
	}
	cp := *rec

	h.mu.Lock()
	h.records[rec.PublicKey] = &cp
	h.mu.Unlock()
	return nil
}

// Remove deletes the record for publicKey.
func (h *MemoryHandler) Remove(publicKey string) {
	h.mu.Lock()
	delete(h.records, publicKey)
	h.mu.Unlock()
}

// Len returns the number of stored records, expired ones included.
func (h *MemoryHandler) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// SessionFromPublicKey implements instantauth.SessionHandler.
func (h *MemoryHandler) SessionFromPublicKey(_ context.Context, publicKey string) (any, error) {
	h.mu.RLock()
	rec, ok := h.records[publicKey]
	h.mu.RUnlock()

	if !ok || rec.Expired(h.now()) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// PrivateKey implements instantauth.SessionHandler.
func (h *MemoryHandler) PrivateKey(sess any) (string, error) {
	rec, err := asRecord(sess)
	if err != nil {
		return "", err
	}
	return rec.PrivateKey, nil
}

// PublicKey implements instantauth.SessionHandler.
func (h *MemoryHandler) PublicKey(sess any) (string, error) {
	rec, err := asRecord(sess)
	if err != nil {
		return "", err
	}
	return rec.PublicKey, nil
}
