package ocr

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedProvider wraps a provider with a requests-per-minute budget
type rateLimitedProvider struct {
	provider    Provider
	rateLimiter *rate.Limiter
}

func newRateLimitedProvider(provider Provider, requestsPerMinute float64) *rateLimitedProvider {
	// Convert requests per minute to requests per second, burst size of 1
	rps := rate.Limit(requestsPerMinute / 60.0)
	return &rateLimitedProvider{
		provider:    provider,
		rateLimiter: rate.NewLimiter(rps, 1),
	}
}

// ProcessImage waits for the limiter before delegating
func (r *rateLimitedProvider) ProcessImage(ctx context.Context, imageContent []byte, filename string) (*OCRResult, error) {
	if err := r.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return r.provider.ProcessImage(ctx, imageContent, filename)
}

// Ready forwards to the wrapped provider when it can report readiness
func (r *rateLimitedProvider) Ready(ctx context.Context) error {
	if hc, ok := r.provider.(HealthChecker); ok {
		return hc.Ready(ctx)
	}
	return nil
}

// Close forwards to the wrapped provider when it holds resources
func (r *rateLimitedProvider) Close() error {
	if c, ok := r.provider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
