package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix namespaces limiter counters in a shared Redis.
const rateLimitKeyPrefix = "oppscore:ratelimit:"

// fixedWindowScript increments the window counter, starts the window on the
// first hit, and returns the count with the window's remaining milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimitStore implements RateLimitStore with a fixed window counter in
// Redis so limits hold across API replicas. Redis failures fail open.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// RedisStoreOption configures a RedisRateLimitStore.
type RedisStoreOption func(*RedisRateLimitStore)

// WithStoreMetrics counts fail-open events on m.
func WithStoreMetrics(m *Metrics) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.metrics = m }
}

// WithStoreLogger sets the logger used for Redis errors.
func WithStoreLogger(l *slog.Logger) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.logger = l }
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client, opts ...RedisStoreOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	windowMs := config.WindowDuration.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}

	res, err := fixedWindowScript.Run(ctx, s.client, []string{rateLimitKeyPrefix + key}, windowMs).Int64Slice()
	if err != nil || len(res) != 2 {
		if s.metrics != nil {
			s.metrics.IncRateLimitStoreErrors()
		}
		s.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
			"key", key,
			"error", err)
		return true, config.RequestsPerWindow, 0
	}

	count, ttlMs := int(res[0]), res[1]
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}
	return false, 0, retryAfterSeconds(time.Duration(ttlMs) * time.Millisecond)
}
