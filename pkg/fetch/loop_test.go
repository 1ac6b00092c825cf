package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"venuescraper/pkg/config"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
)

func testLoop() *Loop {
	retryCfg := &config.RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0,
	}
	return New(0, retryCfg, logger.GetLogger())
}

func TestLoopSuccess(t *testing.T) {
	loop := testLoop()

	err := loop.Do(context.Background(), "page_1", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	s := loop.Summary()
	if s.Succeeded != 1 {
		t.Errorf("Expected 1 succeeded, got %d", s.Succeeded)
	}
	if s.RetriedThenSucceeded != 0 || s.SkippedPermanent != 0 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

func TestLoopRetriedThenSucceeded(t *testing.T) {
	loop := testLoop()

	attempts := 0
	err := loop.Do(context.Background(), "page_1", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errs.Transient("test", errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}

	s := loop.Summary()
	if s.RetriedThenSucceeded != 1 {
		t.Errorf("Expected 1 retried-then-succeeded, got %d", s.RetriedThenSucceeded)
	}
	if s.Succeeded != 0 {
		t.Errorf("Expected 0 first-try successes, got %d", s.Succeeded)
	}
}

func TestLoopExhaustedRetriesBecomePermanent(t *testing.T) {
	loop := testLoop()

	attempts := 0
	err := loop.Do(context.Background(), "page_3", func(ctx context.Context) error {
		attempts++
		return errs.Transient("test", errors.New("still down"))
	})
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}
	if errs.TypeOf(err) != errs.ErrorTypePermanent {
		t.Errorf("Expected permanent classification, got %s", errs.TypeOf(err))
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	s := loop.Summary()
	if s.SkippedPermanent != 1 {
		t.Errorf("Expected 1 skipped, got %d", s.SkippedPermanent)
	}
	if len(s.Failures) != 1 || s.Failures[0].Unit != "page_3" {
		t.Errorf("Expected failure recorded for page_3, got %+v", s.Failures)
	}
}

func TestLoopPermanentErrorSkipsWithoutRetry(t *testing.T) {
	loop := testLoop()

	attempts := 0
	err := loop.Do(context.Background(), "venue_x", func(ctx context.Context) error {
		attempts++
		return errs.Permanent("test", errors.New("404"))
	})
	if err == nil {
		t.Fatal("Expected permanent error")
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts)
	}
	if loop.Summary().SkippedPermanent != 1 {
		t.Errorf("Expected 1 skipped, got %d", loop.Summary().SkippedPermanent)
	}
}

func TestLoopFatalErrorPassesThrough(t *testing.T) {
	loop := testLoop()

	fatal := errs.Fatal("disk", errors.New("write failed"))
	err := loop.Do(context.Background(), "page_1", func(ctx context.Context) error {
		return fatal
	})
	if !errs.IsFatal(err) {
		t.Fatalf("Expected fatal error to pass through, got %v", err)
	}

	s := loop.Summary()
	if s.SkippedPermanent != 0 || len(s.Failures) != 0 {
		t.Errorf("Fatal errors must not be tallied as skipped: %+v", s)
	}
}

func TestLoopContextCancellation(t *testing.T) {
	loop := testLoop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Do(ctx, "page_1", func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestLoopMarkAlreadyDone(t *testing.T) {
	loop := testLoop()
	loop.MarkAlreadyDone()
	loop.MarkAlreadyDone()

	if loop.Summary().AlreadyDone != 2 {
		t.Errorf("Expected 2 already done, got %d", loop.Summary().AlreadyDone)
	}
}
