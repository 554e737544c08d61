package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
)

func newTestExecutor(jitter float64) (*Executor, *clock.Fake) {
	fake := clock.NewFake(time.Unix(0, 0))
	return NewWithClock(fake, func() float64 { return jitter }), fake
}

func noJitter() Policy {
	p := DefaultPolicy()
	p.Jitter = false
	return p
}

func TestPolicyDelaySequence(t *testing.T) {
	p := Policy{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 10 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		require.Equal(t, w, p.Delay(i+1), "retry %d", i+1)
	}
}

func TestPolicyDelayProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Policy{
			InitialDelay: time.Duration(rapid.IntRange(1, 5000).Draw(t, "initial")) * time.Millisecond,
			Multiplier:   float64(rapid.IntRange(1, 4).Draw(t, "multiplier")),
		}
		p.MaxDelay = p.InitialDelay * time.Duration(rapid.IntRange(1, 100).Draw(t, "ceiling"))

		prev := time.Duration(0)
		for n := 1; n <= 40; n++ {
			d := p.Delay(n)
			if d < prev {
				t.Fatalf("delay decreased at retry %d: %v < %v", n, d, prev)
			}
			if d > p.MaxDelay {
				t.Fatalf("delay %v above cap %v", d, p.MaxDelay)
			}
			prev = d
		}
	})
}

func TestJitterBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := rapid.Float64Range(0, 0.999999).Draw(t, "random")
		n := rapid.IntRange(1, 8).Draw(t, "retry")

		e, _ := newTestExecutor(r)
		p := DefaultPolicy()

		base := p.Delay(n)
		got := e.delay(p, n)
		if got < base || float64(got) > float64(base)*1.3 {
			t.Fatalf("jittered delay %v outside [%v, 1.3x]", got, base)
		}
	})
}

func TestRetryMakesMaxRetriesPlusOneAttempts(t *testing.T) {
	e, fake := newTestExecutor(0)

	calls := 0
	upstream := &apperr.Error{Code: apperr.Upstream, Status: 503, Message: "unavailable"}
	err := e.Retry(context.Background(), noJitter(), func(context.Context) error {
		calls++
		return upstream
	})

	require.ErrorIs(t, err, upstream)
	require.Equal(t, 4, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, fake.Sleeps())
}

func TestRetryStopsOnSuccess(t *testing.T) {
	e, fake := newTestExecutor(0)

	calls := 0
	got, err := Do(context.Background(), e, noJitter(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &apperr.Error{Code: apperr.Network, Message: "connection reset"}
		}
		return "hello", nil
	})

	require.NoError(t, err)
	require.Equal(t, "hello", got)
	require.Equal(t, 3, calls)
	require.Len(t, fake.Sleeps(), 2)
}

func TestRetryTerminalErrorIsNotRetried(t *testing.T) {
	e, fake := newTestExecutor(0)

	calls := 0
	terminal := apperr.New(apperr.Validation, "bad input")
	err := e.Retry(context.Background(), noJitter(), func(context.Context) error {
		calls++
		return terminal
	})

	require.Same(t, terminal, err)
	require.Equal(t, 1, calls)
	require.Empty(t, fake.Sleeps())
}

func TestRetryOnRetryObserver(t *testing.T) {
	e, _ := newTestExecutor(0.5)

	var seen []Attempt
	p := DefaultPolicy()
	p.MaxRetries = 2
	p.OnRetry = func(a Attempt) { seen = append(seen, a) }

	cause := errors.New("gateway timeout")
	_ = e.Retry(context.Background(), p, func(context.Context) error { return cause })

	require.Len(t, seen, 2)
	require.Equal(t, 1, seen[0].Number)
	require.InDelta(t, float64(1150*time.Millisecond), float64(seen[0].Delay), float64(time.Microsecond))
	require.Equal(t, 2, seen[1].Number)
	require.InDelta(t, float64(2300*time.Millisecond), float64(seen[1].Delay), float64(time.Microsecond))
	require.ErrorIs(t, seen[1].Cause, cause)
}

func TestRetryCustomClassifier(t *testing.T) {
	e, _ := newTestExecutor(0)

	calls := 0
	p := noJitter()
	p.IsRetryable = func(error) bool { return false }
	_ = e.Retry(context.Background(), p, func(context.Context) error {
		calls++
		return &apperr.Error{Code: apperr.Upstream, Status: 500}
	})
	require.Equal(t, 1, calls)
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	e, _ := newTestExecutor(0)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := e.Retry(ctx, noJitter(), func(context.Context) error {
		calls++
		cancel()
		return &apperr.Error{Code: apperr.Upstream, Status: 502}
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"negative retries", func(p *Policy) { p.MaxRetries = -1 }},
		{"negative initial", func(p *Policy) { p.InitialDelay = -time.Second }},
		{"max below initial", func(p *Policy) { p.MaxDelay = time.Millisecond }},
		{"shrinking multiplier", func(p *Policy) { p.Multiplier = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			require.Error(t, p.Validate())
		})
	}
}
