package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BackoffBase: time.Millisecond,
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), quietLogger(), "teams", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("teams: %w", ErrUpstream)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoDoesNotRetryPermanentError(t *testing.T) {
	permanent := errors.New("解析失败")
	calls := 0
	err := fastPolicy(3).Do(context.Background(), quietLogger(), "teams", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (永久性错误不重试)", calls)
	}
}

func TestDoExhaustsAttemptsAndWrapsLastError(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), quietLogger(), "teamgamelog", func() error {
		calls++
		return fmt.Errorf("attempt %d: %w", calls, ErrRateLimited)
	})
	if err == nil {
		t.Fatal("Do() error = nil, want exhausted error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Do() error = %v, want wrapped ErrRateLimited", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), quietLogger(), "teams", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{MaxAttempts: 3, BackoffBase: time.Hour}
	err := policy.Do(ctx, quietLogger(), "teams", func() error {
		return fmt.Errorf("teams: %w", ErrTimeout)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", fmt.Errorf("op: %w", ErrTimeout), true},
		{"rate limited", ErrRateLimited, true},
		{"upstream 5xx", fmt.Errorf("op: %w", ErrUpstream), true},
		{"permanent", errors.New("bad payload"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
