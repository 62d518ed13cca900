package permissions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisGrantCache_SetGetInvalidate(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	c := NewRedisGrantCache(client, "test:grant:", 5*time.Second)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "u1", "uni-1")
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.Set(ctx, "u1", "uni-1", RoleEditor))
	role, hit, err := c.Get(ctx, "u1", "uni-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, RoleEditor, role)
	require.True(t, m.Exists("test:grant:5:uni-1:u1"))

	require.NoError(t, c.Invalidate(ctx, "u1", "uni-1"))
	_, hit, err = c.Get(ctx, "u1", "uni-1")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRedisGrantCache_NegativeEntryAndTTL(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	c := NewRedisGrantCache(client, "", 2*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "nobody", "p-1", ""))
	role, hit, err := c.Get(ctx, "nobody", "p-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Empty(t, role)

	// advance miniredis clock past TTL
	m.FastForward(3 * time.Second)
	_, hit, err = c.Get(ctx, "nobody", "p-1")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRedisGrantCache_GarbageIsMiss(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	c := NewRedisGrantCache(client, "", time.Minute)
	require.NoError(t, m.Set("grant:3:p-1:u1", "superuser"))

	_, hit, err := c.Get(context.Background(), "u1", "p-1")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRedisGrantCache_ErrorWhenUnavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	c := NewRedisGrantCache(client, "", time.Minute)
	m.Close()

	_, _, err = c.Get(context.Background(), "u1", "p-1")
	require.Error(t, err)
}

func TestRedisGrantCache_ColonsDoNotCollide(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	c := NewRedisGrantCache(client, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "u:x", RoleAdmin))
	_, hit, err := c.Get(ctx, "x:a", "u")
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.Set(ctx, "x:a", "u", ""))
	role, hit, err := c.Get(ctx, "a", "u:x")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, RoleAdmin, role)
	require.Len(t, m.Keys(), 2)
}
