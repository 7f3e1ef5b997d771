package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type declaredError struct{ retryable bool }

func (e declaredError) Error() string     { return "declared" }
func (e declaredError) IsRetryable() bool { return e.retryable }

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 2 {
		t.Errorf("expected MaxRetries=2, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected InitialDelay=500ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 4*time.Second {
		t.Errorf("expected MaxDelay=4s, got %v", cfg.MaxDelay)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"declared retryable", declaredError{retryable: true}, true},
		{"declared permanent", declaredError{retryable: false}, false},
		{"wrapped declared", fmt.Errorf("call: %w", declaredError{retryable: true}), true},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"plain status text", errors.New("upstream 500"), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return declaredError{retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := declaredError{retryable: false}
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	var wrapped *backoff.PermanentError
	if errors.As(err, &wrapped) {
		t.Error("expected the caller's error, not the backoff wrapper")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return declaredError{retryable: true}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", calls)
	}
}

func TestDoWithResult_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, Multiplier: 1}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := DoWithResult(ctx, cfg, func() (int, error) {
			calls++
			return 0, declaredError{retryable: true}
		}, nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoWithResult_NotifiesBeforeEachRetry(t *testing.T) {
	var waits []time.Duration
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", declaredError{retryable: true}
		}
		return "done", nil
	}, func(err error, wait time.Duration) {
		waits = append(waits, wait)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "done" {
		t.Errorf("expected result from final attempt, got %q", got)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(waits))
	}
	if waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("expected 1ms then 2ms, got %v", waits)
	}
}

func TestDoWithResult_NilConfigUsesDefault(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), nil, func() (int, error) {
		calls++
		return 0, declaredError{retryable: false}
	}, nil)
	if err == nil || calls != 1 {
		t.Errorf("expected one failed call, got calls=%d err=%v", calls, err)
	}
}

func TestConfigBackOff(t *testing.T) {
	cfg := &Config{
		MaxRetries:   4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
	b := cfg.backOff(context.Background())
	b.Reset()

	bounds := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}
	for i, base := range bounds {
		got := b.NextBackOff()
		lo := time.Duration(float64(base) * 0.9)
		hi := time.Duration(float64(base) * 1.1)
		if got < lo || got > hi {
			t.Errorf("wait %d: %v outside [%v, %v]", i, got, lo, hi)
		}
	}
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("expected Stop after MaxRetries, got %v", got)
	}
}

func TestConfigBackOff_NoRetries(t *testing.T) {
	b := (&Config{MaxRetries: 0, InitialDelay: time.Millisecond}).backOff(context.Background())
	b.Reset()
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("expected Stop, got %v", got)
	}
}
