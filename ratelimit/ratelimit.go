// Package ratelimit paces calls to the translation service.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call may proceed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay pauses for Interval before every call, including the first.
type FixedDelay struct {
	Interval time.Duration
}

// Wait sleeps for the interval or until ctx is done.
func (f FixedDelay) Wait(ctx context.Context) error {
	if f.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucket allows rps calls per second with the given burst.
type TokenBucket struct {
	l *rate.Limiter
}

// NewTokenBucket returns a token bucket limiter. A burst below 1 is
// raised to 1.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{l: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available.
func (b *TokenBucket) Wait(ctx context.Context) error {
	return b.l.Wait(ctx)
}

// New picks a token bucket when rps > 0, otherwise a fixed delay.
func New(delay time.Duration, rps float64, burst int) Limiter {
	if rps > 0 {
		return NewTokenBucket(rps, burst)
	}
	return FixedDelay{Interval: delay}
}
