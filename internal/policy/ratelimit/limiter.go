// Package ratelimit implements an in-process token bucket quota keyed by caller.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter manages one token bucket per caller.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// Config holds quota configuration.
type Config struct {
	// PerHour is the sustained number of scrapes a caller may run per hour. Zero disables the limit.
	PerHour int
	// Burst is the bucket size. Defaults to PerHour.
	Burst int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(float64(cfg.PerHour) / time.Hour.Seconds())
	if cfg.PerHour <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.PerHour
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow consumes one token for userID. It never blocks.
func (l *Limiter) Allow(_ context.Context, userID string) (bool, error) {
	return l.bucket(userID).AllowN(l.now(), 1), nil
}

func (l *Limiter) bucket(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, exists := l.limiters[userID]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[userID] = limiter
	}
	return limiter
}
