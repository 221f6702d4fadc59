package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"vibelog/internal/domain"
)

func testRetryPolicy(sleeps *[]time.Duration) retryPolicy {
	p := newRetryPolicy(slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return p
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(&sleeps)

	calls := 0
	err := p.do(context.Background(), "post", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient failure %d", calls)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 backoffs", sleeps)
	}
	if sleeps[0] != 2*time.Second || sleeps[1] != 4*time.Second {
		t.Fatalf("backoffs = %v, want [2s 4s]", sleeps)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(&sleeps)

	base := errors.New("button not found")
	calls := 0
	err := p.do(context.Background(), "post", func() error {
		calls++
		return base
	})
	if calls != maxAttempts {
		t.Fatalf("calls = %d, want %d", calls, maxAttempts)
	}
	if !errors.Is(err, base) {
		t.Fatalf("do() = %v, want wrapped %v", err, base)
	}
	if len(sleeps) != maxAttempts-1 {
		t.Fatalf("sleeps = %v, want %d backoffs", sleeps, maxAttempts-1)
	}
}

func TestRetryBackoffIsCapped(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(&sleeps)
	p.attempts = 7

	err := p.do(context.Background(), "post", func() error {
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatal("do() = nil, want error after exhausting attempts")
	}
	// 2s 4s 8s 16s 30s 30s
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleeps[%d] = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestRetrySessionExpiredShortCircuits(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(&sleeps)

	calls := 0
	err := p.do(context.Background(), "post", func() error {
		calls++
		return fmt.Errorf("verify: %w", domain.ErrSessionExpired)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1: expired sessions must not be retried", calls)
	}
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("do() = %v, want ErrSessionExpired", err)
	}
	if len(sleeps) != 0 {
		t.Fatalf("sleeps = %v, want none", sleeps)
	}
}

func TestRetryHonorsContextDuringBackoff(t *testing.T) {
	p := newRetryPolicy(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.do(ctx, "post", func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("do() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
