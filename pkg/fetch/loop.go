// Package fetch drives rate-limited, retried calls to external services.
// Each work unit is paced by a minimum inter-call delay, attempted with
// bounded retries on transient failures, and downgraded to a permanent
// per-unit failure once retries are exhausted. A failing unit never halts
// the run; failures are tallied and reported in the run summary.
package fetch

import (
	"context"
	"errors"
	"time"

	"venuescraper/pkg/config"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/ratelimit"
	"venuescraper/pkg/retry"
)

// UnitFailure records a work unit that permanently failed.
type UnitFailure struct {
	Unit string
	Err  error
}

// Summary tallies the outcome of every work unit in a run. A run always
// ends by reporting these counts.
type Summary struct {
	Succeeded            int
	RetriedThenSucceeded int
	SkippedPermanent     int
	AlreadyDone          int
	Failures             []UnitFailure
}

// Fields returns the summary as structured log fields.
func (s *Summary) Fields() map[string]interface{} {
	return map[string]interface{}{
		"succeeded":              s.Succeeded,
		"retried_then_succeeded": s.RetriedThenSucceeded,
		"skipped_permanent":      s.SkippedPermanent,
		"already_done":           s.AlreadyDone,
	}
}

// Loop runs work units sequentially against one external service.
type Loop struct {
	pacer    *ratelimit.Pacer
	retryCfg *retry.Config
	logger   logger.Logger
	summary  Summary
}

// New creates a fetch loop with the given inter-call delay and retry policy.
func New(delay time.Duration, retryCfg *config.RetryConfig, log logger.Logger) *Loop {
	return &Loop{
		pacer:    ratelimit.NewPacer(delay),
		retryCfg: retry.FromConfig(retryCfg, log),
		logger:   log,
	}
}

// Do runs a single unit of work. The pacer delay is applied before the call
// regardless of the previous unit's outcome. Transient failures are retried
// with backoff; a unit that stays failed is recorded as a permanent failure
// and a nil-wrapped permanent error is returned so the caller can log it
// and continue with the next unit. Only context cancellation and fatal
// errors should stop the caller's loop.
func (l *Loop) Do(ctx context.Context, unit string, op func(ctx context.Context) error) error {
	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}

	retried := false
	cfg := l.retryCfg.WithContext(ctx)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = true
	}

	err := retry.Do(func() error {
		return op(ctx)
	}, cfg)

	if err == nil {
		if retried {
			l.summary.RetriedThenSucceeded++
		} else {
			l.summary.Succeeded++
		}
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errs.IsFatal(err) {
		return err
	}

	// Exhausted retries or a permanent classification: the unit is skipped
	// and the run continues.
	l.summary.SkippedPermanent++
	l.summary.Failures = append(l.summary.Failures, UnitFailure{Unit: unit, Err: err})
	l.logger.WarnWithFields("work unit permanently failed, skipping", map[string]interface{}{
		"unit":  unit,
		"error": err.Error(),
	})

	return errs.Permanent(unit, err)
}

// MarkAlreadyDone records a unit skipped because its work was already
// complete. No external call is made and no pacing delay applies.
func (l *Loop) MarkAlreadyDone() {
	l.summary.AlreadyDone++
}

// Summary returns the accumulated run summary.
func (l *Loop) Summary() *Summary {
	return &l.summary
}
