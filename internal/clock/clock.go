// Package clock abstracts time so tickers, rate windows and retry delays can
// be driven deterministically in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// Every calls fn once per interval until the returned Timer is stopped.
	Every(interval time.Duration, fn func(now time.Time)) Timer
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type Timer interface {
	Stop()
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Every(interval time.Duration, fn func(now time.Time)) Timer {
	t := &realTimer{done: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case now := <-ticker.C:
				select {
				case <-t.done:
					return
				default:
				}
				fn(now)
			}
		}
	}()

	return t
}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type realTimer struct {
	once sync.Once
	done chan struct{}
}

func (t *realTimer) Stop() {
	t.once.Do(func() { close(t.done) })
}
