// Package pipeline drives one voice or text translation request end to end:
// capture, transcribe, translate through the cache, synthesize and play.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/connectivity"
	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/playback"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
	"github.com/leonardotrapani/voxbridge/internal/transcriber"
	"github.com/leonardotrapani/voxbridge/internal/translator"
)

const DefaultMaxTextLength = 5000

var (
	ErrNothingToReplay = errors.New("pipeline: nothing to replay yet")
	ErrBusy            = errors.New("pipeline: a voice session is in progress")
)

type Options struct {
	Machine     *recording.Machine
	Transcriber transcriber.Transcriber
	Translator  translator.Translator
	// Synthesizer is optional; without it results carry no audio.
	Synthesizer synthesizer.Synthesizer
	// Player is optional; without it nothing is played.
	Player playback.Player

	Cache   *cache.Cache
	Limiter *ratelimit.Limiter
	Retry   *backoff.Executor
	Policy  backoff.Policy
	Network connectivity.Checker
	// History is optional; a fresh one keeps HistoryLimit entries.
	History *History
	Clock   clock.Clock

	SourceLang    string
	TargetLang    string
	MaxTextLength int
	MaxAudioBytes int
}

// TextRequest is one text translation.
type TextRequest struct {
	Text       string
	SourceLang string
	TargetLang string
	// SkipCache forces a fresh translation. The result is still stored.
	SkipCache bool
}

type TextResult struct {
	OriginalText   string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	FromCache      bool
	// Tier is the cache tier that answered, empty for fresh translations.
	Tier string
}

// Result is a finished voice translation.
type Result struct {
	TextResult
	SessionID uuid.UUID
	Audio     *synthesizer.Audio
}

type Orchestrator struct {
	machine *recording.Machine
	stt     transcriber.Transcriber
	mt      translator.Translator
	tts     synthesizer.Synthesizer
	player  playback.Player

	cache   *cache.Cache
	limiter *ratelimit.Limiter
	retry   *backoff.Executor
	policy  backoff.Policy
	network connectivity.Checker
	history *History
	clock   clock.Clock

	maxText  int
	maxAudio int

	mu         sync.Mutex
	sourceLang string
	targetLang string
	last       *Result
	lastErr    error
	inflight   context.CancelFunc
	inflightID uuid.UUID
	onResult   []func(Result)
	onError    []func(error)
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Machine == nil || opts.Transcriber == nil || opts.Translator == nil || opts.Cache == nil {
		return nil, fmt.Errorf("pipeline: machine, transcriber, translator and cache are required")
	}
	if err := validatePair(opts.SourceLang, opts.TargetLang); err != nil {
		return nil, err
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(ratelimit.DefaultRules())
	}
	if opts.Retry == nil {
		opts.Retry = backoff.New()
	}
	if opts.Network == nil {
		opts.Network = connectivity.Static(true)
	}
	if opts.Policy.MaxRetries == 0 && opts.Policy.InitialDelay == 0 && opts.Policy.Multiplier == 0 {
		p := backoff.DefaultPolicy()
		p.IsRetryable, p.OnRetry = opts.Policy.IsRetryable, opts.Policy.OnRetry
		opts.Policy = p
	}
	if opts.Player == nil {
		opts.Player = playback.Nop{}
	}
	if opts.History == nil {
		opts.History = NewHistory(HistoryLimit)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultMaxTextLength
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = recording.DefaultMachineConfig().MaxAudioBytes
	}

	o := &Orchestrator{
		machine:    opts.Machine,
		stt:        opts.Transcriber,
		mt:         opts.Translator,
		tts:        opts.Synthesizer,
		player:     opts.Player,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		retry:      opts.Retry,
		policy:     opts.Policy,
		network:    opts.Network,
		history:    opts.History,
		clock:      opts.Clock,
		maxText:    opts.MaxTextLength,
		maxAudio:   opts.MaxAudioBytes,
		sourceLang: language.Normalize(opts.SourceLang),
		targetLang: language.Normalize(opts.TargetLang),
	}

	o.machine.OnAutoStop(func(utt recording.Utterance) {
		go func() {
			if _, err := o.Process(context.Background(), utt); err != nil && !apperr.IsCancelled(err) {
				log.Printf("Pipeline: auto-stopped session %s failed: %v", utt.SessionID, err)
			}
		}()
	})
	return o, nil
}

// OnResult registers fn for every successful voice translation.
func (o *Orchestrator) OnResult(fn func(Result)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResult = append(o.onResult, fn)
}

// OnError registers fn for every failed voice translation. Cancellations are
// not reported.
func (o *Orchestrator) OnError(fn func(error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onError = append(o.onError, fn)
}

func (o *Orchestrator) Languages() (source, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sourceLang, o.targetLang
}

func (o *Orchestrator) SetLanguages(source, target string) error {
	if err := validatePair(source, target); err != nil {
		return err
	}
	o.mu.Lock()
	o.sourceLang, o.targetLang = language.Normalize(source), language.Normalize(target)
	o.mu.Unlock()
	return nil
}

// Swap exchanges the source and target language and returns the new pair.
func (o *Orchestrator) Swap() (source, target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sourceLang, o.targetLang = o.targetLang, o.sourceLang
	log.Printf("Pipeline: languages swapped to %s -> %s", o.sourceLang, o.targetLang)
	return o.sourceLang, o.targetLang
}

func (o *Orchestrator) State() recording.State {
	return o.machine.State()
}

// LastResult is the most recent successful voice translation.
func (o *Orchestrator) LastResult() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

// Reset forgets the remembered microphone answer, clears every rate window
// and empties the memory cache tier. It refuses while a session is live.
func (o *Orchestrator) Reset() error {
	if !settled(o.machine.State()) {
		return ErrBusy
	}
	o.machine.ResetPermission()
	o.limiter.ResetAll()
	o.cache.ClearMemory()
	log.Printf("Pipeline: permission, rate limits and memory cache reset")
	return nil
}

// settled reports whether no session is live.
func settled(s recording.State) bool {
	return s == recording.Idle || s == recording.Error
}

func validatePair(source, target string) error {
	if !language.IsSupported(source) {
		return apperr.Newf(apperr.Validation, "unsupported source language %q", source)
	}
	if !language.IsSupported(target) {
		return apperr.Newf(apperr.Validation, "unsupported target language %q", target)
	}
	if language.Normalize(source) == language.Normalize(target) {
		return apperr.Newf(apperr.Validation, "source and target language are both %q", language.Normalize(source))
	}
	return nil
}

func (o *Orchestrator) validateText(req TextRequest) (TextRequest, error) {
	if err := validatePair(req.SourceLang, req.TargetLang); err != nil {
		return req, err
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return req, apperr.New(apperr.Validation, "nothing to translate")
	}
	if n := utf8.RuneCountInString(req.Text); n > o.maxText {
		return req, apperr.Newf(apperr.Validation, "text is %d characters, the limit is %d", n, o.maxText)
	}
	req.SourceLang = language.Normalize(req.SourceLang)
	req.TargetLang = language.Normalize(req.TargetLang)
	return req, nil
}

func (o *Orchestrator) online(ctx context.Context) bool {
	return o.network.Online(ctx)
}
