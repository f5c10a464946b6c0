package credcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "issuance:pending:"

// Sealer encrypts values before they leave the process.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// RedisStore is a Store backed by Redis. Values are JSON sealed with Sealer; expiry uses Redis TTL.
type RedisStore struct {
	rdb    *redis.Client
	sealer Sealer
}

// NewRedisStore returns a RedisStore.
func NewRedisStore(rdb *redis.Client, sealer Sealer) *RedisStore {
	return &RedisStore{rdb: rdb, sealer: sealer}
}

func key(handle string) string { return keyPrefix + handle }

// Put seals p and stores it under the handle's key with ttl.
func (s *RedisStore) Put(ctx context.Context, handle string, p Pending, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(b)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(handle), sealed, ttl).Err()
}

// Get loads and opens the value for handle.
func (s *RedisStore) Get(ctx context.Context, handle string) (Pending, bool, error) {
	raw, err := s.rdb.Get(ctx, key(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, false, nil
	}
	if err != nil {
		return Pending{}, false, err
	}
	b, err := s.sealer.Open(raw)
	if err != nil {
		return Pending{}, false, err
	}
	var p Pending
	if err := json.Unmarshal(b, &p); err != nil {
		return Pending{}, false, err
	}
	return p, true, nil
}

// Delete removes the handle's key.
func (s *RedisStore) Delete(ctx context.Context, handle string) error {
	return s.rdb.Del(ctx, key(handle)).Err()
}

// Ping checks the Redis connection; used for readiness.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
