package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	rredis "permisconnect/pkg/redis"
)

// KV is the subset of the Redis client the store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore keeps the record under a single Redis key, so one SET replaces
// the whole session at once.
type RedisStore struct {
	kv  KV
	key string
}

// NewRedisStore returns a store writing to key.
func NewRedisStore(kv KV, key string) *RedisStore {
	return &RedisStore{kv: kv, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, rredis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", s.key)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	return errors.Wrapf(s.kv.Set(ctx, s.key, data, 0), "redis set %s", s.key)
}
