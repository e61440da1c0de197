// Package ratelimit caps the rate of outbound API requests.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket refills at a steady rate of requests per period
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requests per period, with at most burst requests at once
func NewTokenBucket(requests int, period time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requests > 0 && period > 0 {
		limit = rate.Every(period / time.Duration(requests))
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

// PerMinute is a shorthand for NewTokenBucket(requests, time.Minute, burst)
func PerMinute(requests, burst int) *TokenBucket {
	return NewTokenBucket(requests, time.Minute, burst)
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
