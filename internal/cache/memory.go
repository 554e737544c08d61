package cache

import (
	"context"
	"sync"
	"time"
)

const DefaultMemoryEntries = 100

// Memory is the session-lived tier. When full, the oldest inserted key is
// dropped first; hits do not reorder keys.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[Key]Entry
	order      []Key
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &Memory{
		maxEntries: maxEntries,
		entries:    make(map[Key]Entry, maxEntries),
		order:      make([]Key, 0, maxEntries),
	}
}

func (m *Memory) Name() string {
	return TierMemory
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[e.Key]; ok {
		e.UsageCount = max(e.UsageCount, old.UsageCount)
		if old.LastUsedAt.After(e.LastUsedAt) {
			e.LastUsedAt = old.LastUsedAt
		}
		m.entries[e.Key] = e
		return nil
	}

	for len(m.order) >= m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[e.Key] = e
	m.order = append(m.order, e.Key)
	return nil
}

func (m *Memory) Hit(_ context.Context, key Key, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	e.UsageCount++
	e.LastUsedAt = at
	m.entries[key] = e
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Cap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxEntries
}

// Resize changes the capacity, dropping the oldest keys that no longer fit.
func (m *Memory) Resize(maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxEntries = maxEntries
	for len(m.order) > m.maxEntries {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]Entry, m.maxEntries)
	m.order = m.order[:0]
}
