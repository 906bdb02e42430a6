// Package redisstore keeps session credentials in Redis, for clients that
// share a session across machines.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/rideshare/internal/storage"
)

// Cmdable is the part of the go-redis client the store uses.
// *redis.Client satisfies it.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Store prefixes every key, so several profiles can share one database.
type Store struct {
	client Cmdable
	prefix string
}

var _ storage.Store = (*Store)(nil)

// New connects to addr. The connection is lazy; the first command surfaces
// dial errors.
func New(addr, password, prefix string) *Store {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return NewWithClient(c, prefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(c Cmdable, prefix string) *Store {
	return &Store{client: c, prefix: prefix}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.client.(interface {
		Ping(ctx context.Context) *redis.StatusCmd
	})
	if !ok {
		return nil
	}
	return p.Ping(ctx).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *Store) Close() error { return s.client.Close() }
