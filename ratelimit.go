package gotmt

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig caps how often the provider is called.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate; values below 1 mean 60
	BurstSize         int // Calls allowed back to back; defaults to 1
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	rpm := c.RequestsPerMinute
	if rpm < 1 {
		rpm = 60
	}
	burst := c.BurstSize
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// RateLimitedProvider spaces out calls to a Provider. The wait counts
// against the adapter's per-call timeout, so a long queue turns into
// fallbacks rather than stalled requests.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps provider with a token bucket limiter.
func NewRateLimitedProvider(provider Provider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{provider: provider, limiter: cfg.limiter()}
}

// Translate waits for a token and forwards the request.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		// Wait also fails early when the deadline is too close for a token.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ProviderError{
			Kind:    KindUnavailable,
			Message: "rate limit wait aborted",
			Cause:   err,
		}
	}

	return p.provider.Translate(ctx, req)
}

// Tokens reports how many calls could be made right now.
func (p *RateLimitedProvider) Tokens() float64 {
	return p.limiter.Tokens()
}
