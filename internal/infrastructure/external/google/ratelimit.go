package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ServiceType identifies a Google API for rate limiting purposes.
type ServiceType string

const (
	ServiceDrive    ServiceType = "drive"
	ServiceCalendar ServiceType = "calendar"
)

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimits stays well below Google's per-user quotas.
var DefaultRateLimits = map[ServiceType]RateLimitConfig{
	ServiceDrive:    {RequestsPerSecond: 8.0, BurstSize: 10},
	ServiceCalendar: {RequestsPerSecond: 5.0, BurstSize: 10},
}

// RateLimiter is a token bucket that also honours Retry-After hints from
// throttled responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter with the defaults for service
func NewRateLimiter(service ServiceType) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewRateLimiterWithConfig(cfg)
}

// NewRateLimiterWithConfig creates a limiter with a custom configuration
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request may be made
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRetryAfter holds all requests back for the given number of seconds
func (r *RateLimiter) RecordRetryAfter(seconds int) {
	if seconds <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now().Add(time.Duration(seconds) * time.Second)
	if at.After(r.retryAt) {
		r.retryAt = at
	}
}
