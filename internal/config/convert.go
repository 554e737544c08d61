package config

import (
	"fmt"

	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/injection"
	"github.com/leonardotrapani/voxbridge/internal/provider"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
	"github.com/leonardotrapani/voxbridge/internal/transcriber"
	"github.com/leonardotrapani/voxbridge/internal/translator"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToMachineConfig() recording.MachineConfig {
	return recording.MachineConfig{
		Encoding:      c.ToRecordingConfig().Encoding(),
		MaxDuration:   c.Recording.MaxDuration,
		TickInterval:  c.Recording.TickInterval,
		MaxAudioBytes: c.Recording.MaxAudioBytes,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider: c.Transcription.Provider,
		APIKey:   c.ResolveAPIKey(c.Transcription.Provider),
		Model:    c.Transcription.Model,
	}
}

func (c *Config) ToTranslatorConfig() translator.Config {
	return translator.Config{
		Provider:     c.Translation.Provider,
		APIKey:       c.ResolveAPIKey(c.Translation.Provider),
		Model:        c.Translation.Model,
		Keywords:     c.Translation.Keywords,
		CustomPrompt: c.Translation.CustomPrompt,
	}
}

func (c *Config) ToSynthesizerConfig() synthesizer.Config {
	return synthesizer.Config{
		Provider: c.Synthesis.Provider,
		APIKey:   c.ResolveAPIKey(c.Synthesis.Provider),
		Model:    c.Synthesis.Model,
		Voice:    c.Synthesis.Voice,
		Speed:    c.Synthesis.Speed,
		Format:   c.Synthesis.Format,
	}
}

func (c *Config) ToRetryPolicy() backoff.Policy {
	return backoff.Policy{
		MaxRetries:   c.Retry.MaxRetries,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
	}
}

func (c *Config) ToRateRules() map[ratelimit.Category]ratelimit.Rule {
	rules := make(map[ratelimit.Category]ratelimit.Rule, len(c.RateLimits))
	for name, rl := range c.RateLimits {
		rules[ratelimit.Category(name)] = ratelimit.Rule{MaxRequests: rl.MaxRequests, Window: rl.Window}
	}
	return rules
}

func (c *Config) ToSQLiteOptions() cache.SQLiteOptions {
	return cache.SQLiteOptions{
		MaxEntries: c.Cache.PersistentMaxEntries,
		TrimBuffer: c.Cache.PersistentTrimBuffer,
	}
}

// CacheDBPath is cache.db_path, or the XDG data location when unset.
func (c *Config) CacheDBPath() (string, error) {
	if c.Cache.DBPath != "" {
		return c.Cache.DBPath, nil
	}
	path, err := cache.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("resolve cache path: %w", err)
	}
	return path, nil
}

func (c *Config) ToRemoteCacheConfig() cache.RemoteConfig {
	r := c.Cache.Remote
	return cache.RemoteConfig{
		BaseURL:          r.URL,
		Token:            r.Token,
		Timeout:          r.Timeout,
		FailureThreshold: r.FailureThreshold,
		Cooldown:         r.Cooldown,
	}
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Clipboard:        c.Output.Clipboard,
		ClipboardTimeout: c.Output.ClipboardTimeout,
	}
}

// ResolveAPIKey returns the key for providerName from providers.<name>.api_key
// or its environment variable.
func (c *Config) ResolveAPIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	return provider.KeyFromEnv(providerName)
}

// SynthesisEnabled reports whether translations should be spoken.
func (c *Config) SynthesisEnabled() bool {
	return c.Synthesis.Enabled && c.Synthesis.Provider != ""
}
