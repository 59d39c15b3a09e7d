package rateLimit

import (
	"context"
	"time"

	"github.com/robertarktes/event-registrations/internal/observability"
)

// Counter is a fixed-window hit counter.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
	rate    int
	period  time.Duration
	logger  observability.Logger
}

func NewRateLimiter(counter Counter, rate int, period time.Duration, logger observability.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, rate: rate, period: period, logger: logger}
}

// Allow fails open when the counter backend is unreachable.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	n, err := rl.counter.IncrWindow(ctx, "rl:"+key, rl.period)
	if err != nil {
		rl.logger.WithError(err).Warn("rate limit counter unavailable")
		return true
	}
	if n > int64(rl.rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
