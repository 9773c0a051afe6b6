package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storefront/client/internal/domain/shared"
)

const defaultGuardPrefix = "storefront:submission:"

// releaseScript deletes a claim only if it still carries our token, so a
// claim that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares submission claims between processes through Redis.
// The client belongs to the caller; Close does not close it.
type RedisGuard struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisGuard creates a guard on client. An empty prefix selects
// "storefront:submission:".
func NewRedisGuard(client *redis.Client, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = defaultGuardPrefix
	}
	return &RedisGuard{client: client, prefix: prefix, tokens: make(map[string]string)}
}

// Claim sets the key with NX and a TTL in one command.
func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming %s: %w", key, err)
	}
	if ok {
		g.mu.Lock()
		g.tokens[key] = token
		g.mu.Unlock()
	}
	return ok, nil
}

// Held reports whether the key exists. Redis drops it when the TTL runs out.
func (g *RedisGuard) Held(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, g.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return n > 0, nil
}

// Release is a no-op for keys this guard never claimed.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("releasing %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; see RedisGuard.
func (g *RedisGuard) Close() error { return nil }

var _ shared.SubmissionGuard = (*RedisGuard)(nil)
