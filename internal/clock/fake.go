package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually advanced clock. Callbacks registered through Every run
// synchronously inside Advance, on the caller's goroutine. Sleep returns
// immediately after advancing the clock by the requested duration.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	sleeps []time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Every(interval time.Duration, fn func(now time.Time)) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{clock: f, interval: interval, next: f.now.Add(interval), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()

	f.Advance(d)
	return ctx.Err()
}

// Advance moves the clock forward, firing every due callback in time order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		var due *fakeTimer
		for _, t := range f.timers {
			if t.stopped || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			break
		}

		f.now = due.next
		due.next = due.next.Add(due.interval)
		now := f.now

		f.mu.Unlock()
		due.fn(now)
		f.mu.Lock()
	}

	f.now = target
	f.mu.Unlock()
}

// Sleeps returns every duration passed to Sleep so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// ActiveTimers counts callbacks registered through Every and not yet stopped.
func (f *Fake) ActiveTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	clock    *Fake
	interval time.Duration
	next     time.Time
	fn       func(time.Time)
	stopped  bool
}

func (t *fakeTimer) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}
