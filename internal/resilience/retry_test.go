package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(2), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("still down"), 502)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(5), func(_ context.Context) error {
		calls++
		return errors.New("invalid api key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := fastConfig(5)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("temporary"), 429)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDo_CustomShouldRetryAndOnRetry(t *testing.T) {
	var calls, retries int
	cfg := fastConfig(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }
	cfg.OnRetry = func(attempt int, _ error) { retries = attempt }

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("retry me")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if retries != 2 {
		t.Errorf("expected last retry attempt 2, got %d", retries)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, NewTransientError(errors.New("429"), 429)
		}
		return []string{"https://a.example.com"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "https://a.example.com" {
		t.Errorf("unexpected value %v", got)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	got, err := DoVal(context.Background(), fastConfig(1), func(_ context.Context) (int, error) {
		return 42, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != 0 {
		t.Errorf("expected zero value, got %d", got)
	}
}

func TestWithRetries(t *testing.T) {
	if got := WithRetries(2).MaxAttempts; got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if got := WithRetries(-1).MaxAttempts; got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestComputeBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := computeBackoff(i, cfg); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i, w, got)
		}
	}

	cfg.JitterFraction = 0.5
	for i := 0; i < 100; i++ {
		got := computeBackoff(0, cfg)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered backoff out of range: %s", got)
		}
	}
}

func TestRetryLogger(t *testing.T) {
	fn := RetryLogger("serpapi", "search")
	fn(1, errors.New("transient"))
}

func TestRetryDelay_HonorsRetryAfter(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second, Multiplier: 2}

	te := NewTransientError(errors.New("rate limited"), 429)
	te.RetryAfter = 1500 * time.Millisecond
	if got := retryDelay(0, cfg, te); got != 1500*time.Millisecond {
		t.Errorf("expected Retry-After delay, got %s", got)
	}

	te.RetryAfter = time.Minute
	if got := retryDelay(0, cfg, te); got != 2*time.Second {
		t.Errorf("expected delay capped at MaxBackoff, got %s", got)
	}

	if got := retryDelay(1, cfg, errors.New("plain")); got != 200*time.Millisecond {
		t.Errorf("expected computed backoff, got %s", got)
	}
}
