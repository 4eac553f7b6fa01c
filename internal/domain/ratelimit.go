package domain

import (
	"context"
	"time"
)

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per bucket key over a rolling window. The
// public verification endpoints key buckets by caller address and purpose.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// RateLimitKey builds the bucket key for a public endpoint and a caller
// address. Two purposes never share a bucket.
func RateLimitKey(purpose, callerAddr string) string {
	return "addr:" + callerAddr + ":endpoint:" + purpose
}
