// Package ratelimit implements sliding-window admission control for metered
// upstream operations, one window per category plus a global budget.
package ratelimit

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
)

type Category string

const (
	Translation    Category = "translation"
	SpeechToText   Category = "speech_to_text"
	TextToSpeech   Category = "text_to_speech"
	OCR            Category = "ocr"
	DetectLanguage Category = "detect_language"
	Global         Category = "global"
)

// Rule bounds a category to MaxRequests within the trailing Window.
type Rule struct {
	MaxRequests int
	Window      time.Duration
}

func DefaultRules() map[Category]Rule {
	return map[Category]Rule{
		Translation:    {MaxRequests: 30, Window: time.Minute},
		SpeechToText:   {MaxRequests: 20, Window: time.Minute},
		TextToSpeech:   {MaxRequests: 20, Window: time.Minute},
		OCR:            {MaxRequests: 10, Window: time.Minute},
		DetectLanguage: {MaxRequests: 30, Window: time.Minute},
		Global:         {MaxRequests: 100, Window: time.Minute},
	}
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetIn is the time until the oldest request in the window expires,
	// or until the block lifts.
	ResetIn time.Duration
	// RetryAfter is zero when allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return apperr.Seconds(d.RetryAfter)
}

// Status is a read-only view of one category.
type Status struct {
	Category     Category      `json:"category"`
	Requests     int           `json:"requests"`
	MaxRequests  int           `json:"max_requests"`
	Window       time.Duration `json:"window"`
	Blocked      bool          `json:"blocked"`
	BlockedUntil time.Time     `json:"blocked_until,omitempty"`
}

type window struct {
	requests     []time.Time
	blockedUntil time.Time
}

// Limiter is safe for concurrent use. Categories without a rule are never
// limited by their own window but still count against Global.
type Limiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	rules   map[Category]Rule
	windows map[Category]*window
}

func New(rules map[Category]Rule) *Limiter {
	return NewWithClock(rules, clock.Real{})
}

func NewWithClock(rules map[Category]Rule, c clock.Clock) *Limiter {
	copied := make(map[Category]Rule, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	return &Limiter{
		clock:   c,
		rules:   copied,
		windows: make(map[Category]*window),
	}
}

// SetRules replaces the rules in place. Requests already recorded stay in
// their windows and count against the new limits.
func (l *Limiter) SetRules(rules map[Category]Rule) {
	copied := make(map[Category]Rule, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules = copied
}

func (l *Limiter) window(cat Category) *window {
	w, ok := l.windows[cat]
	if !ok {
		w = &window{}
		l.windows[cat] = w
	}
	return w
}

// prune drops timestamps that have left the window.
func (w *window) prune(now time.Time, span time.Duration) {
	keep := 0
	for _, ts := range w.requests {
		if now.Sub(ts) < span {
			break
		}
		keep++
	}
	if keep > 0 {
		w.requests = append(w.requests[:0], w.requests[keep:]...)
	}
}

// Check reports whether one more request in cat would be admitted. A denied
// category stays blocked until its oldest request expires.
func (l *Limiter) Check(cat Category) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(cat, l.clock.Now())
}

func (l *Limiter) check(cat Category, now time.Time) Decision {
	rule, ok := l.rules[cat]
	if !ok || rule.MaxRequests <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}
	w := l.window(cat)

	if !w.blockedUntil.IsZero() {
		if now.Before(w.blockedUntil) {
			wait := w.blockedUntil.Sub(now)
			return Decision{ResetIn: wait, RetryAfter: wait}
		}
		w.blockedUntil = time.Time{}
	}

	w.prune(now, rule.Window)

	resetIn := rule.Window
	if len(w.requests) > 0 {
		resetIn = rule.Window - now.Sub(w.requests[0])
	}

	if len(w.requests) >= rule.MaxRequests {
		w.blockedUntil = now.Add(resetIn)
		return Decision{ResetIn: resetIn, RetryAfter: resetIn}
	}

	return Decision{
		Allowed:   true,
		Remaining: rule.MaxRequests - len(w.requests),
		ResetIn:   resetIn,
	}
}

// Record consumes one slot in cat.
func (l *Limiter) Record(cat Category) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(cat, l.clock.Now())
}

func (l *Limiter) record(cat Category, now time.Time) {
	w := l.window(cat)
	w.requests = append(w.requests, now)
}

// Acquire admits one request in cat against both cat and Global, recording
// it in both on success. Denial is a RATE_LIMIT_EXCEEDED error carrying the
// longer of the two waits.
func (l *Limiter) Acquire(cat Category) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	own := l.check(cat, now)
	global := Decision{Allowed: true}
	if cat != Global {
		global = l.check(Global, now)
	}

	if !own.Allowed || !global.Allowed {
		wait := max(own.RetryAfter, global.RetryAfter)
		scope := cat
		if own.Allowed {
			scope = Global
		}
		log.Printf("Rate limiter: %s denied, retry in %ds", scope, apperr.Seconds(wait))
		return apperr.RateLimited(string(scope), wait)
	}

	l.record(cat, now)
	if cat != Global {
		l.record(Global, now)
	}
	return nil
}

func (l *Limiter) Status(cat Category) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	rule := l.rules[cat]
	w := l.window(cat)
	if rule.Window > 0 {
		w.prune(now, rule.Window)
	}

	st := Status{
		Category:    cat,
		Requests:    len(w.requests),
		MaxRequests: rule.MaxRequests,
		Window:      rule.Window,
	}
	if now.Before(w.blockedUntil) {
		st.Blocked = true
		st.BlockedUntil = w.blockedUntil
	}
	return st
}

// Snapshot returns the status of every configured category, sorted by name.
func (l *Limiter) Snapshot() []Status {
	l.mu.Lock()
	cats := make([]Category, 0, len(l.rules))
	for c := range l.rules {
		cats = append(cats, c)
	}
	l.mu.Unlock()

	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	out := make([]Status, 0, len(cats))
	for _, c := range cats {
		out = append(out, l.Status(c))
	}
	return out
}

func (l *Limiter) Reset(cat Category) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, cat)
}

func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[Category]*window)
}

func ValidateRule(cat Category, r Rule) error {
	if r.MaxRequests <= 0 {
		return fmt.Errorf("%s: max requests must be positive: %d", cat, r.MaxRequests)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%s: window must be positive: %v", cat, r.Window)
	}
	return nil
}
