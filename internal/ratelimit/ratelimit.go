package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/onnwee/reddit-pulse/internal/metrics"
)

// Limiter throttles outbound requests on two axes: request count and an
// estimated token volume, both per minute. Acquire blocks until both buckets
// permit, so a burst of large responses slows the caller down even when the
// raw request rate is under the cap.
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute requests and
// tokensPerMinute tokens. Burst capacity equals one minute's budget, which
// approximates a sliding one-minute window.
func New(requestsPerMinute, tokensPerMinute int) *Limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if tokensPerMinute < 1 {
		tokensPerMinute = 1
	}
	return &Limiter{
		requests: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		tokens:   rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
	}
}

// Acquire blocks until one request slot and tokens token units are available,
// or ctx is done. tokens below 1 is treated as 1.
func (l *Limiter) Acquire(ctx context.Context, tokens int) error {
	if tokens < 1 {
		tokens = 1
	}
	if tokens > l.tokens.Burst() {
		tokens = l.tokens.Burst()
	}
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	if err := l.tokens.WaitN(ctx, tokens); err != nil {
		return err
	}
	metrics.RateLimitWaits.Inc()
	return nil
}

// EstimateTokens derives a token cost from a payload size in bytes.
// Roughly four bytes per token, minimum 1.
func EstimateTokens(payloadBytes int) int {
	if payloadBytes <= 0 {
		return 1
	}
	t := payloadBytes / 4
	if t < 1 {
		t = 1
	}
	return t
}
