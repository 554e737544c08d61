package config

import (
	"time"

	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
)

const DefaultCheckURL = "https://clients3.google.com/generate_204"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16le",
			BufferSize:        4096,
			Device:            "",
			ChannelBufferSize: 20,
			MaxDuration:       30 * time.Second,
			TickInterval:      100 * time.Millisecond,
			MaxAudioBytes:     10 << 20,
		},
		Transcription: TranscriptionConfig{
			Provider: "openai",
			Model:    "whisper-1",
		},
		Translation: TranslationConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			SourceLanguage: "en",
			TargetLanguage: "es",
			MaxTextLength:  5000,
		},
		Synthesis: SynthesisConfig{
			Enabled:  true,
			Provider: "openai",
			Model:    "tts-1",
			Voice:    "nova",
			Speed:    1.0,
			Format:   "wav",
		},
		Playback: PlaybackConfig{
			Enabled: true,
		},
		Cache: CacheConfig{
			MemoryMaxEntries:     100,
			PersistentMaxEntries: 500,
			PersistentTrimBuffer: 50,
			Remote: RemoteCacheConfig{
				Enabled:          false,
				Timeout:          3 * time.Second,
				FailureThreshold: 3,
				Cooldown:         30 * time.Second,
			},
			Server: CacheServerConfig{
				Listen: "127.0.0.1:8787",
			},
		},
		Network: NetworkConfig{
			CheckURL:     DefaultCheckURL,
			CheckTimeout: 2 * time.Second,
			CheckTTL:     10 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		RateLimits: defaultRateLimits(),
		Output: OutputConfig{
			Clipboard:        false,
			ClipboardTimeout: 3 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Providers: make(map[string]ProviderConfig),
	}
}

func defaultRateLimits() map[string]RateLimitConfig {
	out := make(map[string]RateLimitConfig)
	for cat, rule := range ratelimit.DefaultRules() {
		out[string(cat)] = RateLimitConfig{MaxRequests: rule.MaxRequests, Window: rule.Window}
	}
	return out
}

// applyRateLimitDefaults fills categories the file leaves out and windows it
// leaves unset.
func (c *Config) applyRateLimitDefaults() {
	defaults := defaultRateLimits()
	if c.RateLimits == nil {
		c.RateLimits = defaults
		return
	}
	for name, def := range defaults {
		rl, ok := c.RateLimits[name]
		if !ok {
			c.RateLimits[name] = def
			continue
		}
		if rl.Window == 0 {
			rl.Window = def.Window
			c.RateLimits[name] = rl
		}
	}
}
