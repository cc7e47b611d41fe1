package gotmt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingProvider answers every request and counts calls.
type countingProvider struct {
	calls atomic.Int64
}

func (c *countingProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	c.calls.Add(1)
	out := make(map[string]string, len(req.TargetLangs))
	for _, lang := range req.TargetLangs {
		out[lang] = "[" + lang + "] ok"
	}
	return out, nil
}

func translateOnce(ctx context.Context, p Provider) error {
	_, err := p.Translate(ctx, TranslateRequest{Text: "Hello", TargetLangs: []string{"es"}})
	return err
}

func TestRateLimitConfig_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       RateLimitConfig
		wantEvery time.Duration
		wantBurst int
	}{
		{"zero", RateLimitConfig{}, time.Second, 1},
		{"rpm only", RateLimitConfig{RequestsPerMinute: 120}, 500 * time.Millisecond, 1},
		{"burst", RateLimitConfig{RequestsPerMinute: 6, BurstSize: 3}, 10 * time.Second, 3},
		{"negative", RateLimitConfig{RequestsPerMinute: -5, BurstSize: -1}, time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.cfg.limiter()
			if l.Burst() != tt.wantBurst {
				t.Errorf("burst = %d, want %d", l.Burst(), tt.wantBurst)
			}
			every := time.Duration(float64(time.Second) / float64(l.Limit()))
			if diff := every - tt.wantEvery; diff > time.Millisecond || diff < -time.Millisecond {
				t.Errorf("interval = %v, want %v", every, tt.wantEvery)
			}
		})
	}
}

func TestRateLimitedProvider_BurstThenWait(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimitedProvider(inner, RateLimitConfig{RequestsPerMinute: 600, BurstSize: 2})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := translateOnce(ctx, p); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst calls should not wait, took %v", elapsed)
	}

	// 600 RPM is one token every 100ms.
	start = time.Now()
	if err := translateOnce(ctx, p); err != nil {
		t.Fatalf("third call failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected a rate limit wait, returned in %v", elapsed)
	}

	if got := inner.calls.Load(); got != 3 {
		t.Errorf("inner calls = %d, want 3", got)
	}
}

func TestRateLimitedProvider_DeadlineTooShort(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimitedProvider(inner, RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})

	if err := translateOnce(context.Background(), p); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := translateOnce(ctx, p)
	if err == nil {
		t.Fatal("expected an error when the next token is a minute away")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("should fail without sleeping out the deadline, took %v", elapsed)
	}

	var pErr *ProviderError
	if !errors.As(err, &pErr) || pErr.Kind != KindUnavailable {
		t.Errorf("expected unavailable provider error, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("rate limit aborts should not be retryable")
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner provider should not be called, got %d calls", got)
	}
}

func TestRateLimitedProvider_Cancelled(t *testing.T) {
	p := NewRateLimitedProvider(&countingProvider{}, RateLimitConfig{RequestsPerMinute: 60})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := translateOnce(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRateLimitedProvider_Concurrent(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimitedProvider(inner, RateLimitConfig{RequestsPerMinute: 1, BurstSize: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var ok atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if translateOnce(ctx, p) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := ok.Load(); got != 5 {
		t.Errorf("succeeded = %d, want the burst of 5", got)
	}
	if tokens := p.Tokens(); tokens >= 1 {
		t.Errorf("tokens = %v, want the bucket drained", tokens)
	}
}
