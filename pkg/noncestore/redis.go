package noncestore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for verifiers running as more than
// one process. A nonce is recorded with SET NX EX: atomic in Redis itself,
// so no Lua script is needed for plain test-and-set the way the teacher's
// token-bucket limiter needs one for its read-refill-consume sequence.
type RedisStore struct {
	client  *redis.Client
	ttlSecs int64
}

// NewRedisStore returns a RedisStore against addr, recording nonces for
// ttlSecs.
func NewRedisStore(addr, password string, db int, ttlSecs int64) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttlSecs: ttlSecs,
	}
}

// Seen performs an atomic test-and-set against Redis: SET NX succeeds only
// if the nonce key did not already exist, eliminating the TOCTOU window a
// separate GET-then-SET would have.
func (s *RedisStore) Seen(nonce string, created int64) (bool, error) {
	ctx := context.Background()
	key := "covenant:nonce:" + nonce

	inserted, err := s.client.SetNX(ctx, key, created, time.Duration(s.ttlSecs)*time.Second).Result()
	if err != nil {
		return false, fmt.Errorf("noncestore: redis: %w", err)
	}
	return !inserted, nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
