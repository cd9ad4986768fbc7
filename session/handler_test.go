package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHandlerResolvesRecord(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	rec := testRecord(t)
	if err := store.Save(ctx, rec, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	h := NewHandler(store, 30*time.Minute)
	sess, err := h.SessionFromPublicKey(ctx, rec.PublicKey)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	priv, err := h.PrivateKey(sess)
	if err != nil || priv != rec.PrivateKey {
		t.Fatalf("private key: got %q, %v", priv, err)
	}
	pub, err := h.PublicKey(sess)
	if err != nil || pub != rec.PublicKey {
		t.Fatalf("public key: got %q, %v", pub, err)
	}

	if ttl := mr.TTL("iat:pk:" + rec.PublicKey); ttl <= time.Minute || ttl > 30*time.Minute {
		t.Fatalf("sliding lookup should extend ttl within ExpiresAt, got %v", ttl)
	}
}

func TestHandlerUnknownKey(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	h := NewHandler(store, 0)
	sess, err := h.SessionFromPublicKey(context.Background(), "nope")
	if sess != nil || !errors.Is(err, redis.Nil) {
		t.Fatalf("expected nil session and redis.Nil-wrapped error, got %v, %v", sess, err)
	}
}

func TestHandlerRejectsForeignSession(t *testing.T) {
	h := NewHandler(nil, 0)
	if _, err := h.PrivateKey(map[string]string{"id": "1"}); !errors.Is(err, ErrNotRecord) {
		t.Fatalf("expected ErrNotRecord, got %v", err)
	}
	var nilRec *Record
	if _, err := h.PublicKey(nilRec); !errors.Is(err, ErrNotRecord) {
		t.Fatalf("expected ErrNotRecord for nil record, got %v", err)
	}
}

func TestMemoryHandler(t *testing.T) {
	h := NewMemoryHandler()
	rec := testRecord(t)
	if err := h.Add(rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", h.Len())
	}

	sess, err := h.SessionFromPublicKey(context.Background(), rec.PublicKey)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if priv, _ := h.PrivateKey(sess); priv != rec.PrivateKey {
		t.Fatalf("private key mismatch")
	}

	h.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := h.SessionFromPublicKey(context.Background(), rec.PublicKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to be not found, got %v", err)
	}

	h.Remove(rec.PublicKey)
	if h.Len() != 0 {
		t.Fatalf("expected empty handler after remove")
	}
}

func TestProvisionGeneratesDistinctKeys(t *testing.T) {
	a := testRecord(t)
	b := testRecord(t)
	if a.PublicKey == b.PublicKey || a.PrivateKey == b.PrivateKey {
		t.Fatalf("provisioned records must not share keys")
	}
	if len(a.PrivateKey) != 43 {
		t.Fatalf("expected 43-char base64url private key, got %d", len(a.PrivateKey))
	}
	if !ValidPublicKey(a.PublicKey) {
		t.Fatalf("provisioned public key %q is not valid", a.PublicKey)
	}
	if a.ExpiresAt-a.CreatedAt != int64(time.Hour/time.Second) {
		t.Fatalf("unexpected expiry window")
	}
}
