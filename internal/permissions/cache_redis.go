package permissions

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// negative lookups are cached too so unknown identities do not hammer the store
const noGrant = "-"

// GrantCache memoizes grant lookups. A hit with an empty role is a cached "no grant".
type GrantCache interface {
	Get(ctx context.Context, identity, resourceID string) (role Role, hit bool, err error)
	Set(ctx context.Context, identity, resourceID string, role Role) error
	Invalidate(ctx context.Context, identity, resourceID string) error
}

// RedisGrantCache stores roles under "<prefix><len(resourceID)>:<resourceID>:<identity>" with a
// TTL. The length prefix keeps ids that contain ':' from colliding.
type RedisGrantCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGrantCache creates a Redis-backed grant cache. Prefix may be empty.
func NewRedisGrantCache(client *redis.Client, prefix string, ttl time.Duration) *RedisGrantCache {
	if prefix == "" {
		prefix = "grant:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisGrantCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisGrantCache) key(identity, resourceID string) string {
	return c.prefix + strconv.Itoa(len(resourceID)) + ":" + resourceID + ":" + identity
}

func (c *RedisGrantCache) Get(ctx context.Context, identity, resourceID string) (Role, bool, error) {
	v, err := c.client.Get(ctx, c.key(identity, resourceID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	if v == noGrant {
		return "", true, nil
	}
	role, ok := ParseRole(v)
	if !ok {
		// garbage in the cache is treated as a miss
		return "", false, nil
	}
	return role, true, nil
}

func (c *RedisGrantCache) Set(ctx context.Context, identity, resourceID string, role Role) error {
	v := string(role)
	if v == "" {
		v = noGrant
	}
	return c.client.Set(ctx, c.key(identity, resourceID), v, c.ttl).Err()
}

func (c *RedisGrantCache) Invalidate(ctx context.Context, identity, resourceID string) error {
	return c.client.Del(ctx, c.key(identity, resourceID)).Err()
}
