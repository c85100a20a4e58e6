package ratelimit

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared Store for multi-process deployments. Expiry is
// delegated to Redis TTLs, so Sweep is a no-op. Errors fail open: a Redis
// outage must not take the API down with it.
//
// The Get-then-Put cycle the limiter drives is not atomic across replicas:
// two replicas reading the same key concurrently can both write count+1 and
// lose an increment. At these quota sizes the occasional undercount is
// acceptable; exact cross-replica counting would need the store to own the
// increment (INCR + EXPIRE) instead of the limiter.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisStore) Get(key string) (Entry, bool) {
	ctx := context.Background()

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.prefix+key)
	ttlCmd := pipe.PTTL(ctx, s.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err != redis.Nil {
			log.Printf("[RATELIMIT] Redis get failed for %s: %v", key, err)
		}
		return Entry{}, false
	}

	count, err := strconv.Atoi(getCmd.Val())
	if err != nil {
		return Entry{}, false
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return Entry{}, false
	}

	return Entry{Count: count, ResetAt: time.Now().Add(ttl)}, true
}

func (s *RedisStore) Put(key string, entry Entry) {
	ctx := context.Background()

	ttl := time.Until(entry.ResetAt)
	if ttl <= 0 {
		return
	}

	if err := s.client.Set(ctx, s.prefix+key, entry.Count, ttl).Err(); err != nil {
		log.Printf("[RATELIMIT] Redis put failed for %s: %v", key, err)
	}
}

// Sweep is a no-op: Redis expires entries via TTL.
func (s *RedisStore) Sweep(time.Time) int {
	return 0
}
