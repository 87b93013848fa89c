// Package ratelimiter throttles control-plane requests with a token bucket.
package ratelimiter

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// unlimited stands in for "no limit"; rate.Inf ignores burst accounting.
const unlimited = 1_000_000_000

// RateLimiter wraps golang.org/x/time/rate with the request-level helpers the
// HTTP adapter needs.
//
// Tokens are added at requestsPerSecond and the bucket holds at most burst
// tokens, so short spikes above the sustained rate are absorbed.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter. A zero requestsPerSecond disables limiting.
//
// Example:
//
//	// 50 req/s sustained, spikes of up to 100
//	limiter := New(50, 100)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes one token if available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket. For monitoring only.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// Middleware rejects requests with 429 Too Many Requests once the bucket is
// empty. onLimited, if non-nil, is called for every rejected request.
func (r *RateLimiter) Middleware(next http.Handler, onLimited func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow() {
			if onLimited != nil {
				onLimited()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded","code":"RateLimited"}` + "\n"))
			return
		}
		next.ServeHTTP(w, req)
	})
}
