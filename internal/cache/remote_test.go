package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// remoteStub is a minimal shared-cache service keyed by the last path
// segment.
type remoteStub struct {
	mu      sync.Mutex
	entries map[Key]Entry
	hits    int
	token   string
}

func (s *remoteStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/translations/")
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/hits"):
		s.hits++
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet:
		e, ok := s.entries[Key(path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(e)
	case r.Method == http.MethodPut:
		var e Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.entries[Key(path)] = e
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestRemoteRoundTrip(t *testing.T) {
	stub := &remoteStub{entries: make(map[Key]Entry), token: "secret"}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	cfg := DefaultRemoteConfig()
	cfg.BaseURL = srv.URL + "/"
	cfg.Token = "secret"
	r, err := NewRemote(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, KeyFor(bonjour))
	require.NoError(t, err)
	require.False(t, ok)

	e := Entry{Key: KeyFor(bonjour), SourceLang: "fr", TargetLang: "en", SourceText: "Bonjour", TranslatedText: "Hello", UsageCount: 1, LastUsedAt: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, r.Put(ctx, e))

	got, ok, err := r.Get(ctx, e.Key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, e, got)

	require.NoError(t, r.Hit(ctx, e.Key, time.Now()))
	require.Equal(t, 1, stub.hits)
	require.Equal(t, "closed", r.BreakerState())
}

func TestRemoteBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL, FailureThreshold: 2, Cooldown: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := r.Get(ctx, "k")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, http.StatusInternalServerError, se.Status)
	}

	_, _, err = r.Get(ctx, "k")
	require.True(t, IsBreakerOpen(err))
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, "open", r.BreakerState())
}

func TestRemoteUnauthorized(t *testing.T) {
	srv := httptest.NewServer(&remoteStub{entries: make(map[Key]Entry), token: "right"})
	defer srv.Close()

	r, err := NewRemote(RemoteConfig{BaseURL: srv.URL, Token: "wrong"})
	require.NoError(t, err)
	_, _, err = r.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestNewRemoteValidatesURL(t *testing.T) {
	_, err := NewRemote(RemoteConfig{BaseURL: "ftp://cache.example"})
	require.Error(t, err)
	_, err = NewRemote(RemoteConfig{BaseURL: "::not a url"})
	require.Error(t, err)
}

func TestCacheWithRemoteOverHTTP(t *testing.T) {
	stub := &remoteStub{entries: make(map[Key]Entry)}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	remote, err := NewRemote(RemoteConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	writer := New(Options{Persistent: newTestSQLite(t, DefaultSQLiteOptions()), Remote: remote})
	writer.Store(ctx, bonjour, "Hello")

	// A second device with cold local tiers finds it remotely.
	reader := New(Options{Persistent: newTestSQLite(t, DefaultSQLiteOptions()), Remote: remote})
	hit, ok := reader.Lookup(ctx, Request{Text: "  bonjour", SourceLang: "fr", TargetLang: "en"})
	require.True(t, ok)
	require.Equal(t, TierRemote, hit.Tier)
	require.Equal(t, "Hello", hit.TranslatedText)
}
