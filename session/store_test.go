package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "iat")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testRecord(t *testing.T) *Record {
	t.Helper()
	rec, err := Provision(time.Hour, "device-a")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	return rec
}

func TestStoreSaveAndGet(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	rec := testRecord(t)

	if err := store.Save(ctx, rec, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("iat:pk:" + rec.PublicKey) {
		t.Fatalf("expected key under prefix")
	}

	got, err := store.GetByPublicKey(ctx, rec.PublicKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got != *rec {
		t.Fatalf("record mismatch: got %+v want %+v", got, rec)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestStoreSaveRejectsDuplicate(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	rec := testRecord(t)

	if err := store.Save(ctx, rec, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, rec, time.Hour); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 1 {
		t.Fatalf("duplicate save must not bump count, got %d", count)
	}
}

func TestStoreGetUnknownIsNotFound(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	_, err := store.GetByPublicKey(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("ErrNotFound should wrap redis.Nil")
	}
}

func TestStoreRejectsHostilePublicKeys(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, pk := range []string{"", "has space", "line\nbreak", strings.Repeat("a", 256), "\x00"} {
		if _, err := store.GetByPublicKey(ctx, pk); !errors.Is(err, ErrNotFound) {
			t.Fatalf("key %q: expected ErrNotFound, got %v", pk, err)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("hostile lookups must not touch redis keys, got %v", keys)
	}

	rec := testRecord(t)
	rec.PublicKey = "bad key"
	if err := store.Save(ctx, rec, time.Hour); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey, got %v", err)
	}
}

func TestStoreExpiredRecordIsDeletedOnRead(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }
	rec, err := provisionAt(base, time.Minute, "")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := store.Save(ctx, rec, 0); err != nil {
		t.Fatalf("save: %v", err)
	}

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := store.GetByPublicKey(ctx, rec.PublicKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
	if mr.Exists("iat:pk:" + rec.PublicKey) {
		t.Fatalf("expired record should be deleted")
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("expected count 0 after expiry cleanup, got %d", count)
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	rec := testRecord(t)

	if err := store.Save(ctx, rec, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, rec.PublicKey); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, rec.PublicKey); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("count must never go negative, got %d", count)
	}
}

func TestStoreTouchExtendsTTL(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	rec := testRecord(t)

	if err := store.Save(ctx, rec, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Touch(ctx, rec.PublicKey, 10*time.Minute); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if ttl := mr.TTL("iat:pk:" + rec.PublicKey); ttl != 10*time.Minute {
		t.Fatalf("expected ttl 10m, got %v", ttl)
	}
	if err := store.Touch(ctx, "missing", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound touching missing key, got %v", err)
	}
}

func TestStoreRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewStore(rdb, "iat")
	mr.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
	if _, err := store.GetByPublicKey(ctx, "pk"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from get, got %v", err)
	}
}

func TestStoreCorruptRecord(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()

	if err := mr.Set("iat:pk:broken", "\x01\x02"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.GetByPublicKey(context.Background(), "broken"); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("expected ErrRecordCorrupt, got %v", err)
	}
}
