package github

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"
)

// RateLimiterStats provides statistics about rate limiter usage
type RateLimiterStats struct {
	RemainingRequests int           `json:"remaining_requests"`
	ResetTime         time.Time     `json:"reset_time"`
	TotalWaits        int64         `json:"total_waits"`
	TotalDelayTime    time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig configures the rate limiter behavior
type RateLimiterConfig struct {
	// RequestsPerSecond is the steady pace of API calls
	RequestsPerSecond float64

	// Burst is how many calls may be made back to back
	Burst int

	// MinRemainingRequests is the threshold below which we start aggressive throttling
	MinRemainingRequests int

	// AggressiveThrottleDelay is the delay when remaining requests are low
	AggressiveThrottleDelay time.Duration

	// MaxDelay caps any single wait
	MaxDelay time.Duration
}

// DefaultRateLimiterConfig returns a default rate limiter configuration
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		RequestsPerSecond:       10,
		Burst:                   10,
		MinRemainingRequests:    100,
		AggressiveThrottleDelay: 2 * time.Second,
		MaxDelay:                30 * time.Second,
	}
}

// RateLimiter paces calls against the GitHub API and slows down as the
// remaining quota reported by GitHub runs low.
type RateLimiter struct {
	config  *RateLimiterConfig
	limiter *rate.Limiter

	mu        sync.Mutex
	remaining int
	resetTime time.Time
	stats     RateLimiterStats
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &RateLimiter{
		config:    config,
		limiter:   rate.NewLimiter(limit, burst),
		remaining: 5000, // GitHub's default rate limit
		resetTime: time.Now().Add(time.Hour),
		now:       time.Now,
	}
}

// Wait blocks until it's safe to make an API call
func (rl *RateLimiter) Wait(ctx context.Context) error {
	start := rl.now()

	if delay := rl.Delay(); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	if waited := rl.now().Sub(start); waited > time.Millisecond {
		rl.mu.Lock()
		rl.stats.TotalWaits++
		rl.stats.TotalDelayTime += waited
		rl.mu.Unlock()
	}
	return nil
}

// Observe records the rate limit reported with a response
func (rl *RateLimiter) Observe(r github.Rate) {
	if r.Limit == 0 && r.Remaining == 0 {
		return
	}
	rl.UpdateLimits(r.Remaining, r.Reset.Time)
}

// UpdateLimits updates the rate limiter with current GitHub API rate limit information
func (rl *RateLimiter) UpdateLimits(remaining int, resetTime time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.remaining = remaining
	rl.resetTime = resetTime
	rl.stats.RemainingRequests = remaining
	rl.stats.ResetTime = resetTime
}

// Delay returns the extra delay imposed by a low remaining quota
func (rl *RateLimiter) Delay() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.calculateDelay()
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.stats
}

// calculateDelay must be called with rl.mu held
func (rl *RateLimiter) calculateDelay() time.Duration {
	now := rl.now()

	// If rate limit has reset, no delay needed
	if now.After(rl.resetTime) {
		return 0
	}

	var delay time.Duration
	if rl.remaining <= 0 {
		delay = rl.resetTime.Sub(now)
	} else if rl.remaining < rl.config.MinRemainingRequests {
		// Inverse relationship: fewer remaining requests = longer delay
		remainingRatio := float64(rl.remaining) / float64(rl.config.MinRemainingRequests)
		delay = time.Duration(float64(rl.config.AggressiveThrottleDelay) * (1.0 - remainingRatio))
	}

	if rl.config.MaxDelay > 0 {
		delay = minDuration(delay, rl.config.MaxDelay)
	}
	return delay
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
