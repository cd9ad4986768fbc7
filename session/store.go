package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live record exists for a public key. It
	// wraps redis.Nil.
	ErrNotFound = fmt.Errorf("session not found: %w", redis.Nil)
	// ErrRedisUnavailable wraps transport and server errors from Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrExists is returned by Save when a record already holds the public key.
	ErrExists = errors.New("session already exists")
	// ErrInvalidPublicKey is returned by Save for keys that cannot be stored.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// saveScript stores a record only if its key is free and bumps the counter in
// the same step.
const saveScript = `
local ok
if tonumber(ARGV[2]) > 0 then
  ok = redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2])
else
  ok = redis.call("SET", KEYS[1], ARGV[1], "NX")
end
if not ok then
  return 0
end
redis.call("INCR", KEYS[2])
return 1
`

var saveLua = redis.NewScript(saveScript)

const deleteScript = `
local existed = redis.call("DEL", KEYS[1])
if existed == 1 then
  local count = tonumber(redis.call("GET", KEYS[2]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[2])
  elseif count == 1 then
    redis.call("DEL", KEYS[2])
  end
end
return existed
`

var deleteLua = redis.NewScript(deleteScript)

// Store persists records in Redis, one key per public key.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a Store writing keys under prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ia"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) key(publicKey string) string {
	return s.prefix + ":pk:" + publicKey
}

func (s *Store) countKey() string {
	return s.prefix + ":count"
}

// ValidPublicKey reports whether publicKey can be used as a lookup key: 1 to
// 255 bytes of printable ASCII without spaces.
func ValidPublicKey(publicKey string) bool {
	if publicKey == "" || len(publicKey) > maxFieldLen {
		return false
	}
	for i := 0; i < len(publicKey); i++ {
		c := publicKey[i]
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// Save stores rec until ttl elapses. ttl <= 0 stores without a Redis expiry;
// rec.ExpiresAt is still honoured on read.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || !ValidPublicKey(rec.PublicKey) {
		return ErrInvalidPublicKey
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	var ttlMillis int64
	if ttl > 0 {
		ttlMillis = ttl.Milliseconds()
		if ttlMillis == 0 {
			ttlMillis = 1
		}
	}

	created, err := saveLua.Run(ctx, s.redis, []string{s.key(rec.PublicKey), s.countKey()}, data, ttlMillis).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if created == 0 {
		return ErrExists
	}
	return nil
}

// GetByPublicKey returns the live record for publicKey. Invalid, unknown and
// expired keys all return ErrNotFound; expired records are deleted.
func (s *Store) GetByPublicKey(ctx context.Context, publicKey string) (*Record, error) {
	if !ValidPublicKey(publicKey) {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(publicKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.PublicKey != publicKey {
		return nil, fmt.Errorf("%w: key mismatch", ErrRecordCorrupt)
	}

	if rec.Expired(s.now()) {
		if err := s.Delete(ctx, publicKey); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return rec, nil
}

// Delete removes the record for publicKey. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, publicKey string) error {
	if !ValidPublicKey(publicKey) {
		return nil
	}
	if err := deleteLua.Run(ctx, s.redis, []string{s.key(publicKey), s.countKey()}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch resets the Redis expiry of publicKey to ttl.
func (s *Store) Touch(ctx context.Context, publicKey string, ttl time.Duration) error {
	if ttl <= 0 || !ValidPublicKey(publicKey) {
		return nil
	}
	ok, err := s.redis.Expire(ctx, s.key(publicKey), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of records saved and not yet deleted. Records that
// expired inside Redis are still counted until read.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.redis.Get(ctx, s.countKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
