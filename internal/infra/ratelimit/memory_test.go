package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := limiter.Allow(ctx, "addr:1.2.3.4:endpoint:sign", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d denied", i)
		}
		if dec.Remaining != 3-i-1 {
			t.Fatalf("remaining = %d after request %d", dec.Remaining, i)
		}
	}

	dec, err := limiter.Allow(ctx, "addr:1.2.3.4:endpoint:sign", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if dec.Allowed {
		t.Fatal("fourth request allowed within window")
	}
	if !dec.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("reset = %v", dec.ResetAt)
	}

	// A different key has its own budget.
	dec, _ = limiter.Allow(ctx, "addr:5.6.7.8:endpoint:sign", 3, time.Minute)
	if !dec.Allowed {
		t.Fatal("independent key denied")
	}

	// The window rolling over resets the count.
	now = now.Add(time.Minute + time.Second)
	dec, err = limiter.Allow(ctx, "addr:1.2.3.4:endpoint:sign", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !dec.Allowed || dec.Remaining != 2 {
		t.Fatalf("post-window decision = %+v", dec)
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	dec, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("zero limit should disable limiting")
	}
}

func TestMemoryLimiterEvictsExpiredAtCapacity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{
		Now:     func() time.Time { return now },
		MaxKeys: 2,
	})
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("seed a: %v", err)
	}
	if _, err := limiter.Allow(ctx, "b", 1, time.Minute); err != nil {
		t.Fatalf("seed b: %v", err)
	}
	if _, err := limiter.Allow(ctx, "c", 1, time.Minute); err == nil {
		t.Fatal("expected capacity error while windows are live")
	}

	now = now.Add(2 * time.Minute)
	dec, err := limiter.Allow(ctx, "c", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow after gc: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("c denied after expired keys were evicted")
	}
}
