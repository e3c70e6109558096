package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// Redis key prefix for pending login attempts
const stateKeyPrefix = "login:state:"

// RedisStore is the shared backend for multi-instance deployments: the
// callback may land on a different instance than the one that began the
// login. Key expiry is delegated to Redis TTLs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed store. The client lifecycle is
// managed by the caller.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, state string, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal login state: %w", err)
	}
	return s.client.Set(ctx, stateKeyPrefix+state, data, ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, state string) (Entry, error) {
	// GETDEL keeps the read-and-consume atomic across instances.
	data, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("fetch login state: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return Entry{}, fmt.Errorf("unmarshal login state: %w", err)
	}
	return entry, nil
}
