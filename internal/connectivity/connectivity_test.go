package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSwitch(t *testing.T) {
	ctx := context.Background()

	s := NewSwitch(Static(true), false)
	require.True(t, s.Online(ctx))

	s.SetOffline(true)
	require.False(t, s.Online(ctx))
	require.True(t, s.ForcedOffline())

	s.SetOffline(false)
	require.True(t, NewSwitch(nil, false).Online(ctx))
	require.False(t, NewSwitch(Static(false), false).Online(ctx))
}

func TestHTTPCheckCachesForTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	now := time.Unix(1000, 0)
	p := NewHTTPCheck(srv.URL, time.Second, 10*time.Second)
	p.now = func() time.Time { return now }

	require.True(t, p.Online(context.Background()))
	require.True(t, p.Online(context.Background()))
	require.EqualValues(t, 1, hits.Load())

	now = now.Add(11 * time.Second)
	require.True(t, p.Online(context.Background()))
	require.EqualValues(t, 2, hits.Load())
}

func TestHTTPCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewHTTPCheck(url, 200*time.Millisecond, time.Minute)
	require.False(t, p.Online(context.Background()))
}

func TestHTTPCheckLiteralUsesDefaults(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := &HTTPCheck{URL: srv.URL, TTL: time.Minute}
	require.True(t, p.Online(context.Background()))
	require.True(t, p.Online(context.Background()))
	require.EqualValues(t, 1, hits.Load())

	var zero HTTPCheck
	require.False(t, zero.Online(context.Background()))
}
