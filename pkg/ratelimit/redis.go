package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "wellness:ratelimit:"

// RedisLimiter shares counters between instances through Redis. It fails
// open: a Redis error lets the request through and is logged.
type RedisLimiter struct {
	client  *redis.Client
	logger  *zap.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisLimiter connects to Redis and checks the connection.
func NewRedisLimiter(addr, password string, db int, logger *zap.Logger) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisLimiterWithClient(client, logger), nil
}

// NewRedisLimiterWithClient wraps an existing client.
func NewRedisLimiterWithClient(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client:  client,
		logger:  logger,
		prefix:  redisKeyPrefix,
		timeout: 250 * time.Millisecond,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logRedisError("incr", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, window).Err(); err != nil {
			rl.logRedisError("expire", err)
		}
	}
	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return decide(int(counter), limit, time.Now().Add(ttl))
}

// Ping checks the Redis connection.
func (rl *RedisLimiter) Ping(ctx context.Context) error {
	return rl.client.Ping(ctx).Err()
}

func (rl *RedisLimiter) Close() error {
	if rl.client == nil {
		return nil
	}
	return rl.client.Close()
}

func (rl *RedisLimiter) logRedisError(op string, err error) {
	rl.logger.Error("Redis rate limiter error", zap.String("op", op), zap.Error(err))
}
