package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisLimiter is the shared-store variant of the fixed window for
// deployments running more than one server process. The window key
// carries its own TTL, so sweeping is Redis's job.
type RedisLimiter struct {
	client    *redisv9.Client
	windowLen time.Duration
	max       int
}

func NewRedisLimiter(client *redisv9.Client, windowLen time.Duration, max int) *RedisLimiter {
	if windowLen <= 0 {
		windowLen = time.Minute
	}
	if max <= 0 {
		max = 20
	}
	return &RedisLimiter{client: client, windowLen: windowLen, max: max}
}

func (l *RedisLimiter) Allow(callerID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("ratelimit:%s", callerID)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		// Rate limiting is a protection, not a security boundary:
		// if Redis is down we let the request through.
		log.Printf("rate limiter redis incr failed: %v", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.windowLen).Err(); err != nil {
			log.Printf("rate limiter redis expire failed: %v", err)
		}
	}
	return count <= int64(l.max)
}
