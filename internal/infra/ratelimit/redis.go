package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "signflow:ratelimit:"

// allowScript increments the window counter and reports it with the
// remaining window. The PTTL check rather than a first-hit check means a
// key that somehow lost its expiry gets one reattached instead of
// counting forever.
var allowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {hits, ttl}
`)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
	Now       func() time.Time
}

// RedisLimiter counts in redis so the same window is shared across
// instances.
type RedisLimiter struct {
	client    *redis.Client
	namespace string
	now       func() time.Time
}

func NewRedisLimiter(cfg RedisConfig) (*RedisLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisLimiter{client: client, namespace: cfg.Namespace, now: cfg.Now}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = time.Second.Milliseconds()
	}

	result, err := allowScript.Run(ctx, r.client, []string{r.namespace + key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	hits, ttlMillis, err := parseScriptReply(result)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}

	decision := domain.RateLimitDecision{
		Allowed: hits <= int64(limit),
		Limit:   limit,
		ResetAt: r.now().Add(time.Duration(ttlMillis) * time.Millisecond),
	}
	if remaining := int64(limit) - hits; remaining > 0 {
		decision.Remaining = int(remaining)
	}
	return decision, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func parseScriptReply(result any) (hits, ttlMillis int64, err error) {
	values, ok := result.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, errors.New("redis rate limit: unexpected script reply")
	}
	hits, ok = values[0].(int64)
	if !ok {
		return 0, 0, errors.New("redis rate limit: non-integer counter")
	}
	ttlMillis, _ = values[1].(int64)
	if ttlMillis < 0 {
		ttlMillis = 0
	}
	return hits, ttlMillis, nil
}
