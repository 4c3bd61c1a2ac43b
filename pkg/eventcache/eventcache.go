// Package eventcache keeps a short-lived record of processed webhook event
// ids in Redis. It is a fast path only: the database-level guarded update
// stays the source of truth for idempotency, so a cache miss (or no Redis
// at all) is always safe.
package eventcache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook:event:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr. An empty addr or a failed ping returns a
// nil-client Cache that reports every event as unseen.
func New(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return &Cache{ttl: ttl}
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[EventCache] redis unavailable, running without cache: %v", err)
		return &Cache{ttl: ttl}
	}
	return &Cache{client: client, ttl: ttl}
}

// MarkSeen records the event id and reports whether it had been seen
// before. Errors degrade to "not seen".
func (c *Cache) MarkSeen(ctx context.Context, eventID string) bool {
	if c.client == nil || eventID == "" {
		return false
	}
	ok, err := c.client.SetNX(ctx, keyPrefix+eventID, 1, c.ttl).Result()
	if err != nil {
		log.Printf("[EventCache] setnx failed: %v", err)
		return false
	}
	return !ok
}

// Forget drops the event id so a provider retry is processed again. Called
// when handling failed after MarkSeen. A failed DEL is only logged; the
// key expires with its TTL and the database guard stays authoritative.
func (c *Cache) Forget(ctx context.Context, eventID string) {
	if c.client == nil || eventID == "" {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		log.Printf("[EventCache] del failed: %v", err)
	}
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
