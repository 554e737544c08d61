// Package cache is the three-tier translation cache: a capped in-memory tier,
// an on-device SQLite tier and an optional remote shared tier. A hit in a
// slower tier is copied into every faster tier before Lookup returns. Tier
// failures are logged and treated as misses.
package cache

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/connectivity"
)

// Hit is a successful lookup and the tier that answered it.
type Hit struct {
	Entry
	Tier string
}

type Stats struct {
	MemoryEntries  int   `json:"memory_entries"`
	MemoryCapacity int   `json:"memory_capacity"`
	Lookups        int64 `json:"lookups"`
	MemoryHits     int64 `json:"memory_hits"`
	PersistentHits int64 `json:"persistent_hits"`
	RemoteHits     int64 `json:"remote_hits"`
	Misses         int64 `json:"misses"`
	TierErrors     int64 `json:"tier_errors"`
}

type Cache struct {
	memory     *Memory
	persistent Tier
	remote     Tier
	online     connectivity.Checker
	clock      clock.Clock

	lookups, memHits, persistHits, remoteHits, misses, tierErrors atomic.Int64
}

// Options wires the tiers. Persistent and Remote may be nil; Online nil means
// always online.
type Options struct {
	Memory     *Memory
	Persistent Tier
	Remote     Tier
	Online     connectivity.Checker
	Clock      clock.Clock
}

func New(opts Options) *Cache {
	c := &Cache{
		memory:     opts.Memory,
		persistent: opts.Persistent,
		remote:     opts.Remote,
		online:     opts.Online,
		clock:      opts.Clock,
	}
	if c.memory == nil {
		c.memory = NewMemory(DefaultMemoryEntries)
	}
	if c.online == nil {
		c.online = connectivity.Static(true)
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	return c
}

// Lookup checks memory, then the persistent tier, then (only when online) the
// remote tier. A hit increments the usage count in the answering tier and
// backfills every faster tier.
func (c *Cache) Lookup(ctx context.Context, r Request) (Hit, bool) {
	key := KeyFor(r)
	now := c.clock.Now()
	c.lookups.Add(1)

	if e, ok := c.get(ctx, c.memory, key); ok {
		c.hit(ctx, c.memory, key, now)
		e.UsageCount++
		e.LastUsedAt = now
		c.memHits.Add(1)
		return Hit{Entry: e, Tier: TierMemory}, true
	}

	if c.persistent != nil {
		if e, ok := c.get(ctx, c.persistent, key); ok {
			c.hit(ctx, c.persistent, key, now)
			e.UsageCount++
			e.LastUsedAt = now
			c.backfill(ctx, e, c.memory)
			c.persistHits.Add(1)
			return Hit{Entry: e, Tier: TierPersistent}, true
		}
	}

	if c.remote == nil || !c.online.Online(ctx) {
		c.misses.Add(1)
		return Hit{}, false
	}

	if e, ok := c.get(ctx, c.remote, key); ok {
		c.hit(ctx, c.remote, key, now)
		e.UsageCount++
		e.LastUsedAt = now
		c.backfill(ctx, e, c.persistent, c.memory)
		c.remoteHits.Add(1)
		return Hit{Entry: e, Tier: TierRemote}, true
	}

	c.misses.Add(1)
	return Hit{}, false
}

// Store writes the translation to the persistent and memory tiers, and to
// the remote tier when online. It never fails.
func (c *Cache) Store(ctx context.Context, r Request, translated string) {
	if translated == "" {
		return
	}
	e := Entry{
		Key:            KeyFor(r),
		SourceLang:     r.SourceLang,
		TargetLang:     r.TargetLang,
		SourceText:     r.Text,
		TranslatedText: translated,
		UsageCount:     1,
		LastUsedAt:     c.clock.Now(),
	}

	if c.persistent != nil {
		c.put(ctx, c.persistent, e)
	}
	c.put(ctx, c.memory, e)

	if c.remote != nil && c.online.Online(ctx) {
		c.put(ctx, c.remote, e)
	}
}

func (c *Cache) Stats() Stats {
	return Stats{
		MemoryEntries:  c.memory.Len(),
		MemoryCapacity: c.memory.Cap(),
		Lookups:        c.lookups.Load(),
		MemoryHits:     c.memHits.Load(),
		PersistentHits: c.persistHits.Load(),
		RemoteHits:     c.remoteHits.Load(),
		Misses:         c.misses.Load(),
		TierErrors:     c.tierErrors.Load(),
	}
}

func (c *Cache) ClearMemory() {
	c.memory.Clear()
	log.Printf("Cache: memory tier cleared")
}

// Close closes tiers that hold resources.
func (c *Cache) Close() error {
	var errs []error
	for _, t := range []Tier{c.persistent, c.remote} {
		if closer, ok := t.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) get(ctx context.Context, t Tier, key Key) (Entry, bool) {
	e, ok, err := t.Get(ctx, key)
	if err != nil {
		c.tierErrors.Add(1)
		log.Printf("Cache: %s lookup failed, treating as miss: %v", t.Name(), err)
		return Entry{}, false
	}
	return e, ok
}

func (c *Cache) hit(ctx context.Context, t Tier, key Key, now time.Time) {
	if err := t.Hit(ctx, key, now); err != nil {
		c.tierErrors.Add(1)
		log.Printf("Cache: %s usage update failed: %v", t.Name(), err)
	}
}

func (c *Cache) put(ctx context.Context, t Tier, e Entry) {
	if err := t.Put(ctx, e); err != nil {
		c.tierErrors.Add(1)
		log.Printf("Cache: %s write failed: %v", t.Name(), err)
	}
}

func (c *Cache) backfill(ctx context.Context, e Entry, tiers ...Tier) {
	for _, t := range tiers {
		if t == nil {
			continue
		}
		if err := t.Put(ctx, e); err != nil {
			c.tierErrors.Add(1)
			log.Printf("Cache: backfill into %s failed: %v", t.Name(), err)
		}
	}
}
