package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_BlocksAfterMaxFails(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemory(time.Minute, 3, 5*time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("127.0.0.1")

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Failure(ctx, "a@b.com", ip)
		require.NoError(t, err)
		assert.False(t, blocked)
	}
	blocked, d, err := l.Failure(ctx, "a@b.com", ip)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 5*time.Minute, d)

	ok, retry, err := l.Allow(ctx, "a@b.com", ip)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, retry)

	ok, _, _ = l.Allow(ctx, "a@b.com", HashIP("10.0.0.1"))
	assert.True(t, ok, "other ip is unaffected")

	now = now.Add(6 * time.Minute)
	ok, _, _ = l.Allow(ctx, "a@b.com", ip)
	assert.True(t, ok)
}

func TestMemory_WindowAndSuccessReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemory(time.Minute, 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("ip")

	_, _, _ = l.Failure(ctx, "u", ip)
	now = now.Add(2 * time.Minute)
	blocked, _, _ := l.Failure(ctx, "u", ip)
	assert.False(t, blocked, "window expired, count restarted")

	require.NoError(t, l.Success(ctx, "u", ip))
	blocked, _, _ = l.Failure(ctx, "u", ip)
	assert.False(t, blocked)
}
