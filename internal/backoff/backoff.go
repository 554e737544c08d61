// Package backoff retries transient failures with capped exponential delays.
package backoff

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
)

// maxJitter is the upper bound of the random extra delay, as a fraction of
// the computed delay.
const maxJitter = 0.3

// Attempt describes one scheduled retry.
type Attempt struct {
	Number int // 1-indexed retry number
	Delay  time.Duration
	Cause  error
}

// Policy configures retries. MaxRetries+1 attempts are made in total.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool

	// IsRetryable decides whether a failed attempt may be retried. Nil means
	// DefaultIsRetryable.
	IsRetryable func(error) bool
	// OnRetry is called before sleeping ahead of each retry.
	OnRetry func(Attempt)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay returns the un-jittered delay before retry n (1-indexed):
// min(InitialDelay * Multiplier^(n-1), MaxDelay).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if math.IsInf(d, 0) || d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative: %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial delay must be non-negative: %v", p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max delay %v is below initial delay %v", p.MaxDelay, p.InitialDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1: %v", p.Multiplier)
	}
	return nil
}

// Executor runs operations under a Policy. The zero value is not usable; use
// New or NewWithClock.
type Executor struct {
	clock clock.Clock
	rand  func() float64
}

func New() *Executor {
	return NewWithClock(clock.Real{}, rand.Float64)
}

// NewWithClock builds an executor that sleeps on c and draws jitter from
// random, which must return values in [0, 1).
func NewWithClock(c clock.Clock, random func() float64) *Executor {
	if random == nil {
		random = rand.Float64
	}
	return &Executor{clock: c, rand: random}
}

// delay returns the delay before retry n including jitter.
func (e *Executor) delay(p Policy, n int) time.Duration {
	d := p.Delay(n)
	if !p.Jitter || d <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*maxJitter*e.rand())
}

// Retry calls op until it succeeds, the policy is exhausted, a failure is
// classified as terminal, or ctx is done. The last failure is returned.
func (e *Executor) Retry(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	retryable := p.IsRetryable
	if retryable == nil {
		retryable = DefaultIsRetryable
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			d := e.delay(p, attempt)
			if p.OnRetry != nil {
				p.OnRetry(Attempt{Number: attempt, Delay: d, Cause: lastErr})
			}
			if err := e.clock.Sleep(ctx, d); err != nil {
				return apperr.Wrap(apperr.Cancelled, fmt.Errorf("retry interrupted after %d attempts: %w", attempt, lastErr))
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}
		if !retryable(err) {
			return err
		}
		log.Printf("Backoff: attempt %d/%d failed: %v", attempt+1, p.MaxRetries+1, err)
	}

	return lastErr
}

// Do is Retry for operations that produce a value.
func Do[T any](ctx context.Context, e *Executor, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Retry(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
