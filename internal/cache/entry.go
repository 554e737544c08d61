package cache

import (
	"context"
	"errors"
	"time"
)

// Entry is one cached translation. UsageCount never decreases.
type Entry struct {
	Key            Key       `json:"key"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	UsageCount     int64     `json:"usage_count"`
	LastUsedAt     time.Time `json:"last_used_at"`
}

func (e Entry) Validate() error {
	if e.Key == "" {
		return errors.New("entry key is empty")
	}
	if e.TranslatedText == "" {
		return errors.New("entry translated text is empty")
	}
	return nil
}

// Tier is one layer of the cache. Get reports a miss as (Entry{}, false, nil).
// Put upserts: an existing entry keeps the larger usage count.
type Tier interface {
	Name() string
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	// Hit records one more use of key at the given time.
	Hit(ctx context.Context, key Key, at time.Time) error
}

const (
	TierMemory     = "memory"
	TierPersistent = "persistent"
	TierRemote     = "remote"
)
