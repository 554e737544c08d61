package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/notify"
)

type Config struct {
	Recording     RecordingConfig            `toml:"recording"`
	Transcription TranscriptionConfig        `toml:"transcription"`
	Translation   TranslationConfig          `toml:"translation"`
	Synthesis     SynthesisConfig            `toml:"synthesis"`
	Playback      PlaybackConfig             `toml:"playback"`
	Cache         CacheConfig                `toml:"cache"`
	Network       NetworkConfig              `toml:"network"`
	Retry         RetryConfig                `toml:"retry"`
	RateLimits    map[string]RateLimitConfig `toml:"rate_limits"`
	Output        OutputConfig               `toml:"output"`
	Notifications NotificationsConfig        `toml:"notifications"`
	Providers     map[string]ProviderConfig  `toml:"providers"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Format            string        `toml:"format"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	MaxDuration       time.Duration `toml:"max_duration"`
	TickInterval      time.Duration `toml:"tick_interval"`
	MaxAudioBytes     int           `toml:"max_audio_bytes"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

type TranslationConfig struct {
	Provider       string   `toml:"provider"`
	Model          string   `toml:"model"`
	SourceLanguage string   `toml:"source_language"`
	TargetLanguage string   `toml:"target_language"`
	MaxTextLength  int      `toml:"max_text_length"`
	Keywords       []string `toml:"keywords"`
	CustomPrompt   string   `toml:"custom_prompt"`
}

type SynthesisConfig struct {
	Enabled  bool    `toml:"enabled"`
	Provider string  `toml:"provider"`
	Model    string  `toml:"model"`
	Voice    string  `toml:"voice"`
	Speed    float64 `toml:"speed"`
	Format   string  `toml:"format"`
}

type PlaybackConfig struct {
	Enabled bool   `toml:"enabled"`
	Target  string `toml:"target"` // pw-play --target, empty = default sink
}

type CacheConfig struct {
	MemoryMaxEntries     int               `toml:"memory_max_entries"`
	PersistentMaxEntries int               `toml:"persistent_max_entries"`
	PersistentTrimBuffer int               `toml:"persistent_trim_buffer"`
	DBPath               string            `toml:"db_path"` // empty = XDG data dir
	Remote               RemoteCacheConfig `toml:"remote"`
	Server               CacheServerConfig `toml:"server"`
}

type RemoteCacheConfig struct {
	Enabled          bool          `toml:"enabled"`
	URL              string        `toml:"url"`
	Token            string        `toml:"token"`
	Timeout          time.Duration `toml:"timeout"`
	FailureThreshold uint32        `toml:"failure_threshold"`
	Cooldown         time.Duration `toml:"cooldown"`
}

type CacheServerConfig struct {
	Listen string `toml:"listen"`
	Token  string `toml:"token"`
}

type NetworkConfig struct {
	ForceOffline bool          `toml:"force_offline"`
	CheckURL     string        `toml:"check_url"`
	CheckTimeout time.Duration `toml:"check_timeout"`
	CheckTTL     time.Duration `toml:"check_ttl"`
}

type RetryConfig struct {
	MaxRetries   int           `toml:"max_retries"`
	InitialDelay time.Duration `toml:"initial_delay"`
	MaxDelay     time.Duration `toml:"max_delay"`
	Multiplier   float64       `toml:"multiplier"`
	Jitter       bool          `toml:"jitter"`
}

type RateLimitConfig struct {
	MaxRequests int           `toml:"max_requests"`
	Window      time.Duration `toml:"window"`
}

type OutputConfig struct {
	Clipboard        bool          `toml:"clipboard"`
	ClipboardTimeout time.Duration `toml:"clipboard_timeout"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	RecordingStarted MessageConfig `toml:"recording_started"`
	Translating      MessageConfig `toml:"translating"`
	Translated       MessageConfig `toml:"translated"`
	Cancelled        MessageConfig `toml:"cancelled"`
	Replaying        MessageConfig `toml:"replaying"`
	LanguagesSwapped MessageConfig `toml:"languages_swapped"`
	ConfigReloaded   MessageConfig `toml:"config_reloaded"`
	RecordingLimit   MessageConfig `toml:"recording_limit"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
