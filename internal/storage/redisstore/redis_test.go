package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/storage"
)

type fakeRedis struct {
	m       map[string]string
	delArgs []string
	failGet error
	closed  bool
}

var _ Cmdable = (*fakeRedis)(nil)

func newFake() *fakeRedis { return &fakeRedis{m: map[string]string{}} }

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.m[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.m[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.delArgs = append(f.delArgs, keys...)
	var n int64
	for _, k := range keys {
		if _, ok := f.m[k]; ok {
			delete(f.m, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error { f.closed = true; return nil }

func TestStore_PrefixesKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFake()
	s := NewWithClient(f, "rideshare:")

	require.NoError(t, s.Set(ctx, storage.KeyToken, "tok"))
	assert.Equal(t, "tok", f.m["rideshare:token"])

	v, err := s.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	_, err = s.Get(ctx, storage.KeyUser)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, storage.SessionKeys...))
	assert.Equal(t, []string{"rideshare:token", "rideshare:refreshToken", "rideshare:user"}, f.delArgs)
	assert.Empty(t, f.m)

	require.NoError(t, s.Delete(ctx))
	assert.Len(t, f.delArgs, 3)

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())
	assert.True(t, f.closed)
}

func TestStore_GetPropagatesErrors(t *testing.T) {
	t.Parallel()
	f := newFake()
	f.failGet = errors.New("connection refused")
	s := NewWithClient(f, "")

	_, err := s.Get(context.Background(), storage.KeyToken)
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}
