package daemon

import (
	"context"
	"fmt"
	"log"

	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/connectivity"
	"github.com/leonardotrapani/voxbridge/internal/injection"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/playback"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
	"github.com/leonardotrapani/voxbridge/internal/transcriber"
	"github.com/leonardotrapani/voxbridge/internal/translator"
)

// Components is everything built from one config generation.
type Components struct {
	Orchestrator *pipeline.Orchestrator
	Machine      *recording.Machine
	Cache        *cache.Cache
	Network      *connectivity.Switch
	Injector     injection.Injector
}

func (c *Components) Close() error {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

// Shared holds state that outlives one config generation. A rebuild reuses
// it so rate windows, the memory tier and the history survive a reload.
type Shared struct {
	Limiter *ratelimit.Limiter
	Memory  *cache.Memory
	History *pipeline.History
}

// NewShared creates the long-lived state for cfg.
func NewShared(cfg *config.Config) Shared {
	return Shared{
		Limiter: ratelimit.New(cfg.ToRateRules()),
		Memory:  cache.NewMemory(cfg.Cache.MemoryMaxEntries),
		History: pipeline.NewHistory(pipeline.HistoryLimit),
	}
}

// Apply updates the shared state in place to match cfg.
func (s Shared) Apply(cfg *config.Config) {
	if s.Limiter != nil {
		s.Limiter.SetRules(cfg.ToRateRules())
	}
	if s.Memory != nil {
		s.Memory.Resize(cfg.Cache.MemoryMaxEntries)
	}
}

// Builder turns a config into a working set of components. Fields left nil in
// shared are created fresh.
type Builder func(ctx context.Context, cfg *config.Config, shared Shared) (*Components, error)

// Build wires the real PipeWire device, remote adapters and cache tiers.
func Build(ctx context.Context, cfg *config.Config, shared Shared) (*Components, error) {
	fresh := NewShared(cfg)
	if shared.Limiter == nil {
		shared.Limiter = fresh.Limiter
	}
	if shared.Memory == nil {
		shared.Memory = fresh.Memory
	}
	if shared.History == nil {
		shared.History = fresh.History
	}
	network := connectivity.NewSwitch(checkerFor(cfg), cfg.Network.ForceOffline)

	c, err := buildCache(cfg, shared.Memory, network)
	if err != nil {
		return nil, err
	}

	stt, err := transcriber.New(cfg.ToTranscriberConfig())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}
	mt, err := translator.New(ctx, cfg.ToTranslatorConfig())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	var tts synthesizer.Synthesizer
	if cfg.SynthesisEnabled() {
		tts, err = synthesizer.New(cfg.ToSynthesizerConfig())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create synthesizer: %w", err)
		}
	}
	var player playback.Player = playback.Nop{}
	if cfg.Playback.Enabled {
		if err := playback.CheckAvailable(); err != nil {
			log.Printf("Daemon: playback enabled but %v", err)
		}
		player = playback.NewPipeWire(cfg.Playback.Target)
	}

	if cfg.Output.Clipboard {
		if err := injection.CheckClipboardAvailable(); err != nil {
			log.Printf("Daemon: clipboard copy enabled but %v", err)
		}
	}

	machine := recording.NewMachine(recording.NewPipeWire(cfg.ToRecordingConfig()), clock.Real{}, cfg.ToMachineConfig())

	policy := cfg.ToRetryPolicy()
	policy.OnRetry = func(a backoff.Attempt) {
		log.Printf("Daemon: retry %d in %v after: %v", a.Number, a.Delay, a.Cause)
	}

	orch, err := pipeline.New(pipeline.Options{
		Machine:       machine,
		Transcriber:   stt,
		Translator:    mt,
		Synthesizer:   tts,
		Player:        player,
		Cache:         c,
		Limiter:       shared.Limiter,
		Retry:         backoff.New(),
		Policy:        policy,
		Network:       network,
		History:       shared.History,
		SourceLang:    cfg.Translation.SourceLanguage,
		TargetLang:    cfg.Translation.TargetLanguage,
		MaxTextLength: cfg.Translation.MaxTextLength,
		MaxAudioBytes: cfg.Recording.MaxAudioBytes,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	return &Components{
		Orchestrator: orch,
		Machine:      machine,
		Cache:        c,
		Network:      network,
		Injector:     injection.NewInjector(cfg.ToInjectionConfig()),
	}, nil
}

func checkerFor(cfg *config.Config) connectivity.Checker {
	if cfg.Network.CheckURL == "" {
		return connectivity.Static(true)
	}
	return connectivity.NewHTTPCheck(cfg.Network.CheckURL, cfg.Network.CheckTimeout, cfg.Network.CheckTTL)
}

func buildCache(cfg *config.Config, memory *cache.Memory, online connectivity.Checker) (*cache.Cache, error) {
	path, err := cfg.CacheDBPath()
	if err != nil {
		return nil, err
	}
	persistent, err := cache.OpenSQLite(path, cfg.ToSQLiteOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	opts := cache.Options{
		Memory:     memory,
		Persistent: persistent,
		Online:     online,
	}
	if cfg.Cache.Remote.Enabled {
		remote, err := cache.NewRemote(cfg.ToRemoteCacheConfig())
		if err != nil {
			persistent.Close()
			return nil, fmt.Errorf("failed to create remote cache: %w", err)
		}
		opts.Remote = remote
	}
	return cache.New(opts), nil
}
