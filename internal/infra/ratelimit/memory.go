package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"signflow/internal/domain"
)

// ErrCapacity is returned when every tracked window is still live and a
// new key cannot be admitted.
var ErrCapacity = errors.New("rate limiter capacity exceeded")

const defaultMaxKeys = 10000

// sweepEvery forces a scan for stale windows after this many admissions,
// so long-idle keys are reclaimed even well below capacity.
const sweepEvery = 1024

type window struct {
	hits    int
	resetAt time.Time
}

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
	maxKeys int
	ops     int
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// NewMemoryLimiter is a fixed-window counter held in process memory. It
// is the single-instance fallback when no redis address is configured.
func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	l := &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string]*window),
		maxKeys: cfg.MaxKeys,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.maxKeys <= 0 {
		l.maxKeys = defaultMaxKeys
	}
	return l
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, windowLen time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ops++
	if m.ops%sweepEvery == 0 {
		m.sweep(now)
	}

	w := m.windows[key]
	if w != nil && !now.Before(w.resetAt) {
		delete(m.windows, key)
		w = nil
	}
	if w == nil {
		if len(m.windows) >= m.maxKeys {
			m.sweep(now)
			if len(m.windows) >= m.maxKeys {
				return domain.RateLimitDecision{}, ErrCapacity
			}
		}
		w = &window{resetAt: now.Add(windowLen)}
		m.windows[key] = w
	}

	decision := domain.RateLimitDecision{Limit: limit, ResetAt: w.resetAt}
	if w.hits >= limit {
		return decision, nil
	}
	w.hits++
	decision.Allowed = true
	decision.Remaining = limit - w.hits
	return decision, nil
}

func (m *memoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
