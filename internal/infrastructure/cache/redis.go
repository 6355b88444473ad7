package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/zeebo/errs"

	"RingsideSync/internal/ports"
)

const keyPrefix = "ringside:"

// RedisStore is a CacheStore relying on native redis key expiry.
type RedisStore struct {
	db  *redis.Client
	now func() time.Time
}

var _ ports.CacheStore = (*RedisStore)(nil)

// NewRedis returns a configured store, verifying a successful connection to redis.
func NewRedis(address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		return nil, errs.Combine(Error.New("ping failed: %v", err), client.Close())
	}
	return &RedisStore{db: client, now: time.Now}, nil
}

// Put stores payload under key with a TTL derived from expiresAt.
func (s *RedisStore) Put(ctx context.Context, key string, payload []byte, expiresAt *time.Time) error {
	var ttl time.Duration
	if expiresAt != nil {
		ttl = expiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, key)
		}
	}
	if err := s.db.WithContext(ctx).Set(keyPrefix+key, payload, ttl).Err(); err != nil {
		return Error.New("put %s: %v", key, err)
	}
	return nil
}

// Get returns the payload stored under key; expired keys are already gone.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.db.WithContext(ctx).Get(keyPrefix + key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, Error.New("get %s: %v", key, err)
	}
	return out, true, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Del(keyPrefix + key).Err(); err != nil {
		return Error.New("delete %s: %v", key, err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.db.Close()
}
