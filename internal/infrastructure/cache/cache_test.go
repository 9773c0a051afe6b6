package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/client/internal/domain/shared"
)

func exerciseGuard(t *testing.T, g shared.SubmissionGuard) {
	t.Helper()
	ctx := context.Background()

	ok, err := g.Claim(ctx, "cart-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, "cart-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := g.Held(ctx, "cart-1")
	require.NoError(t, err)
	assert.True(t, held)

	held, err = g.Held(ctx, "cart-2")
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, g.Release(ctx, "cart-1"))
	ok, err = g.Claim(ctx, "cart-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, g.Release(ctx, "never-claimed"))
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	defer g.Close()

	exerciseGuard(t, g)
}

func TestMemoryGuard_Expiry(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Now()
	g.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.Claim(ctx, "k"+strconv.Itoa(i), time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.Len())

	now = now.Add(2 * time.Minute)
	held, err := g.Held(ctx, "k0")
	require.NoError(t, err)
	assert.False(t, held)

	ok, err := g.Claim(ctx, "k0", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, g.Len(), "expired claims are swept")
}

func TestRedisGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	g := NewRedisGuard(client, "")

	exerciseGuard(t, g)
	assert.True(t, mr.Exists("storefront:submission:cart-1"))

	mr.FastForward(2 * time.Minute)
	held, err := g.Held(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRedisGuard_CloseLeavesClientOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, NewRedisGuard(client, "").Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisGuard_ReleaseKeepsForeignClaim(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	first := NewRedisGuard(client, "")
	second := NewRedisGuard(client, "")

	ok, err := first.Claim(ctx, "cart-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = second.Claim(ctx, "cart-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release(ctx, "cart-1"))
	assert.True(t, mr.Exists("storefront:submission:cart-1"))

	require.NoError(t, second.Release(ctx, "cart-1"))
	assert.False(t, mr.Exists("storefront:submission:cart-1"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = NewRedisClient(context.Background(), RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
