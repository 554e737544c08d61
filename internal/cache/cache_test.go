package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/connectivity"
)

// fakeTier is an in-memory Tier that counts calls and can be told to fail.
type fakeTier struct {
	mu      sync.Mutex
	name    string
	entries map[Key]Entry
	gets    int
	puts    int
	hits    int
	fail    error
}

func newFakeTier(name string) *fakeTier {
	return &fakeTier{name: name, entries: make(map[Key]Entry)}
}

func (f *fakeTier) Name() string { return f.name }

func (f *fakeTier) Get(_ context.Context, key Key) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fail != nil {
		return Entry{}, false, f.fail
	}
	e, ok := f.entries[key]
	return e, ok, nil
}

func (f *fakeTier) Put(_ context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.fail != nil {
		return f.fail
	}
	f.entries[e.Key] = e
	return nil
}

func (f *fakeTier) Hit(_ context.Context, key Key, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
	if f.fail != nil {
		return f.fail
	}
	if e, ok := f.entries[key]; ok {
		e.UsageCount++
		e.LastUsedAt = at
		f.entries[key] = e
	}
	return nil
}

func (f *fakeTier) counts() (gets, puts, hits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.puts, f.hits
}

func newTestSQLite(t *testing.T, opts SQLiteOptions) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type testCache struct {
	*Cache
	persistent *SQLite
	remote     *fakeTier
	network    *connectivity.Switch
	clock      *clock.Fake
}

func newTestCache(t *testing.T) *testCache {
	t.Helper()
	tc := &testCache{
		persistent: newTestSQLite(t, DefaultSQLiteOptions()),
		remote:     newFakeTier(TierRemote),
		network:    connectivity.NewSwitch(nil, false),
		clock:      clock.NewFake(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
	}
	tc.Cache = New(Options{
		Memory:     NewMemory(DefaultMemoryEntries),
		Persistent: tc.persistent,
		Remote:     tc.remote,
		Online:     tc.network,
		Clock:      tc.clock,
	})
	return tc
}

var bonjour = Request{Text: "Bonjour", SourceLang: "fr", TargetLang: "en"}

func TestStoreThenLookup(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	tc.Store(ctx, bonjour, "Hello")

	hit, ok := tc.Lookup(ctx, bonjour)
	require.True(t, ok)
	require.Equal(t, "Hello", hit.TranslatedText)
	require.Equal(t, TierMemory, hit.Tier)
	require.EqualValues(t, 2, hit.UsageCount)

	_, puts, _ := tc.remote.counts()
	require.Equal(t, 1, puts, "store writes remote when online")
}

func TestStoreThenLookupProperty(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		req := Request{
			Text:       rapid.StringMatching(`[A-Za-z ]{1,40}`).Draw(rt, "text"),
			SourceLang: rapid.SampledFrom([]string{"fr", "en", "ar", "es"}).Draw(rt, "src"),
			TargetLang: rapid.SampledFrom([]string{"de", "it", "pt"}).Draw(rt, "dst"),
		}
		translated := rapid.StringMatching(`[a-z]{1,20}`).Draw(rt, "translated")

		tc.Store(ctx, req, translated)
		hit, ok := tc.Lookup(ctx, req)
		if !ok || hit.TranslatedText != translated {
			rt.Fatalf("lookup after store returned %+v, %v", hit, ok)
		}
	})
}

func TestNormalizationSharesEntry(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	tc.Store(ctx, Request{Text: "Hello ", SourceLang: "en", TargetLang: "fr"}, "Bonjour")

	for _, text := range []string{"hello", "HELLO", "  Hello\n", "hElLo "} {
		hit, ok := tc.Lookup(ctx, Request{Text: text, SourceLang: "en", TargetLang: "fr"})
		require.True(t, ok, "text %q", text)
		require.Equal(t, "Bonjour", hit.TranslatedText)
	}

	_, ok := tc.Lookup(ctx, Request{Text: "hello", SourceLang: "en", TargetLang: "es"})
	require.False(t, ok, "different language pair must miss")
}

func TestKeyNormalizationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[A-Za-z0-9 ]{0,30}`).Draw(t, "text")
		pad := rapid.StringMatching(`[ \t\n]{0,3}`).Draw(t, "pad")

		a := KeyFor(Request{Text: text, SourceLang: "fr", TargetLang: "en"})
		b := KeyFor(Request{Text: pad + Normalize(text) + pad, SourceLang: "FR", TargetLang: "en"})
		if a != b {
			t.Fatalf("keys differ for %q", text)
		}
	})
}

func TestPersistentHitBackfillsMemory(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	tc.Store(ctx, bonjour, "Hello")
	tc.ClearMemory()

	hit, ok := tc.Lookup(ctx, bonjour)
	require.True(t, ok)
	require.Equal(t, TierPersistent, hit.Tier)
	require.Equal(t, 1, tc.memory.Len())

	stored, ok, err := tc.persistent.Get(ctx, KeyFor(bonjour))
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, stored.UsageCount)

	hit, ok = tc.Lookup(ctx, bonjour)
	require.True(t, ok)
	require.Equal(t, TierMemory, hit.Tier)
}

func TestRemoteHitBackfillsAllTiers(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	key := KeyFor(bonjour)
	tc.remote.entries[key] = Entry{
		Key: key, SourceLang: "fr", TargetLang: "en", SourceText: "Bonjour",
		TranslatedText: "Hello", UsageCount: 7, LastUsedAt: tc.clock.Now(),
	}

	hit, ok := tc.Lookup(ctx, bonjour)
	require.True(t, ok)
	require.Equal(t, TierRemote, hit.Tier)
	require.EqualValues(t, 8, hit.UsageCount)

	gets, _, hits := tc.remote.counts()
	require.Equal(t, 1, gets)
	require.Equal(t, 1, hits)

	// The second lookup must not reach the remote or persistent tier.
	tc.network.SetOffline(true)
	hit, ok = tc.Lookup(ctx, bonjour)
	require.True(t, ok)
	require.Equal(t, TierMemory, hit.Tier)

	gets, _, _ = tc.remote.counts()
	require.Equal(t, 1, gets)

	stored, ok, err := tc.persistent.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 8, stored.UsageCount)
}

func TestOfflineSkipsRemote(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	tc.network.SetOffline(true)

	_, ok := tc.Lookup(ctx, bonjour)
	require.False(t, ok)

	tc.Store(ctx, bonjour, "Hello")
	gets, puts, _ := tc.remote.counts()
	require.Zero(t, gets)
	require.Zero(t, puts)

	tc.ClearMemory()
	hit, ok := tc.Lookup(ctx, bonjour)
	require.True(t, ok, "persistent tier serves offline lookups")
	require.Equal(t, TierPersistent, hit.Tier)
}

func TestTierFailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	broken := newFakeTier(TierPersistent)
	broken.fail = errors.New("disk I/O error")
	remote := newFakeTier(TierRemote)
	remote.fail = errors.New("connection refused")

	c := New(Options{Persistent: broken, Remote: remote})

	_, ok := c.Lookup(ctx, bonjour)
	require.False(t, ok)

	c.Store(ctx, bonjour, "Hello")
	hit, ok := c.Lookup(ctx, bonjour)
	require.True(t, ok, "memory still works when other tiers fail")
	require.Equal(t, "Hello", hit.TranslatedText)

	st := c.Stats()
	require.Positive(t, st.TierErrors)
	require.EqualValues(t, 1, st.Misses)
	require.EqualValues(t, 1, st.MemoryHits)
}

func TestStoreIgnoresEmptyTranslation(t *testing.T) {
	tc := newTestCache(t)
	tc.Store(context.Background(), bonjour, "")
	_, ok := tc.Lookup(context.Background(), bonjour)
	require.False(t, ok)
}

func TestStats(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	tc.Lookup(ctx, bonjour)
	tc.Store(ctx, bonjour, "Hello")
	tc.Lookup(ctx, bonjour)

	st := tc.Stats()
	require.Equal(t, 1, st.MemoryEntries)
	require.Equal(t, DefaultMemoryEntries, st.MemoryCapacity)
	require.EqualValues(t, 2, st.Lookups)
	require.EqualValues(t, 1, st.Misses)
	require.EqualValues(t, 1, st.MemoryHits)
}

func TestConcurrentStoreLookup(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := Request{Text: fmt.Sprintf("phrase %d", i%3), SourceLang: "fr", TargetLang: "en"}
			tc.Store(ctx, req, fmt.Sprintf("sentence %d", i%3))
			tc.Lookup(ctx, req)
		}(i)
	}
	wg.Wait()

	n, err := tc.persistent.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
