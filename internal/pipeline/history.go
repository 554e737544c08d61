package pipeline

import (
	"sync"
	"time"
)

// HistoryLimit is how many translations a History keeps by default.
const HistoryLimit = 50

// HistoryEntry is one finished translation, typed or spoken.
type HistoryEntry struct {
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	FromCache      bool      `json:"from_cache"`
	Voice          bool      `json:"voice"`
	At             time.Time `json:"at"`
}

// History remembers the most recent translations. When full the oldest is
// dropped. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{limit: limit}
}

func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
}

// Entries returns the kept translations, newest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

func (o *Orchestrator) remember(res TextResult, voice bool) {
	o.history.Add(HistoryEntry{
		OriginalText:   res.OriginalText,
		TranslatedText: res.TranslatedText,
		SourceLang:     res.SourceLang,
		TargetLang:     res.TargetLang,
		FromCache:      res.FromCache,
		Voice:          voice,
		At:             o.clock.Now(),
	})
}

// History lists recent translations, newest first.
func (o *Orchestrator) History() []HistoryEntry {
	return o.history.Entries()
}

func (o *Orchestrator) ClearHistory() {
	o.history.Clear()
}
