// Package retry implements the bounded exponential backoff policy shared by
// every outbound network call in the service.
package retry

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"
)

// Policy describes how a failed call is retried. A call is attempted once,
// then up to MaxRetries additional times with exponentially growing delays.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy returns the standard policy: 3 retries starting at 1s,
// doubling each time, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     10000 * time.Millisecond,
		Multiplier:   2,
	}
}

// Delay returns the wait before retry attempt k (1-based):
// min(InitialDelay * Multiplier^(k-1), MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}

// Do runs fn, retrying per the policy. It returns nil on the first success,
// the last error once retries are exhausted, or ctx.Err() if the context is
// cancelled while waiting between attempts. op names the call for logging.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.Delay(attempt)
		log.Printf("WARN (retry): %s failed (attempt %d/%d), retrying in %v: %v",
			op, attempt, p.MaxRetries+1, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s aborted while waiting to retry: %w", op, ctx.Err())
		case <-timer.C:
		}

		if err = fn(); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxRetries+1, err)
}
