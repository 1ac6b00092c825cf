// Package ratelimit bounds the request rate against external services.
//
// The pipeline deliberately trades concurrency for a low, predictable
// request rate: work units run one at a time and the pacer enforces a
// minimum interval between consecutive external calls, regardless of the
// outcome of the previous one.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between consecutive external calls.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewPacer creates a pacer with the given minimum inter-call interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next call is allowed or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Interval returns the configured minimum inter-call delay.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
