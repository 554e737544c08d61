package config

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/provider"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
)

func (c *Config) Validate() error {
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}

	if c.Network.CheckTimeout <= 0 {
		return fmt.Errorf("invalid network.check_timeout: %v", c.Network.CheckTimeout)
	}
	if c.Network.CheckURL != "" {
		if err := validateHTTPURL(c.Network.CheckURL); err != nil {
			return fmt.Errorf("invalid network.check_url: %w", err)
		}
	}

	if err := c.ToRetryPolicy().Validate(); err != nil {
		return fmt.Errorf("invalid retry: %w", err)
	}

	names := make([]string, 0, len(c.RateLimits))
	for name := range c.RateLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !isKnownCategory(name) {
			return fmt.Errorf("invalid rate_limits.%s: unknown category", name)
		}
		rl := c.RateLimits[name]
		if err := ratelimit.ValidateRule(ratelimit.Category(name), ratelimit.Rule{MaxRequests: rl.MaxRequests, Window: rl.Window}); err != nil {
			return fmt.Errorf("invalid rate_limits.%w", err)
		}
	}

	if c.Output.Clipboard && c.Output.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid output.clipboard_timeout: %v", c.Output.ClipboardTimeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func (c *Config) validateRecording() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}
	if c.Recording.MaxDuration <= 0 {
		return fmt.Errorf("invalid recording.max_duration: %v", c.Recording.MaxDuration)
	}
	if c.Recording.TickInterval <= 0 || c.Recording.TickInterval > c.Recording.MaxDuration {
		return fmt.Errorf("invalid recording.tick_interval: %v (must be positive and at most max_duration)", c.Recording.TickInterval)
	}
	if c.Recording.MaxAudioBytes <= 0 {
		return fmt.Errorf("invalid recording.max_audio_bytes: %d", c.Recording.MaxAudioBytes)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if err := c.validateStage("transcription", c.Transcription.Provider, c.Transcription.Model, provider.Transcription); err != nil {
		return err
	}
	if err := c.validateStage("translation", c.Translation.Provider, c.Translation.Model, provider.Translation); err != nil {
		return err
	}
	if !c.Synthesis.Enabled {
		return nil
	}
	if err := c.validateStage("synthesis", c.Synthesis.Provider, c.Synthesis.Model, provider.Synthesis); err != nil {
		return err
	}
	if c.Synthesis.Speed < 0.25 || c.Synthesis.Speed > 4.0 {
		return fmt.Errorf("invalid synthesis.speed: %v (must be between 0.25 and 4.0)", c.Synthesis.Speed)
	}
	validFormats := map[string]bool{"wav": true, "mp3": true, "opus": true, "flac": true}
	if !validFormats[c.Synthesis.Format] {
		return fmt.Errorf("invalid synthesis.format: %s (must be wav, mp3, opus, or flac)", c.Synthesis.Format)
	}
	p := provider.GetProvider(c.Synthesis.Provider)
	if m, ok := provider.FindModel(p, c.Synthesis.Model); ok && !m.SupportsVoice(c.Synthesis.Voice) {
		return fmt.Errorf("invalid synthesis.voice: %s (not offered by %s)", c.Synthesis.Voice, c.Synthesis.Model)
	}
	return nil
}

func (c *Config) validateStage(section, name, model string, capability provider.Capability) error {
	if name == "" {
		return fmt.Errorf("invalid %s.provider: empty", section)
	}
	p := provider.GetProvider(name)
	if p == nil {
		return fmt.Errorf("unsupported %s.provider: %s", section, name)
	}
	if !provider.Supports(name, capability) {
		return fmt.Errorf("invalid %s.provider: %s does not offer %s", section, name, capability)
	}
	if model != "" {
		m, ok := provider.FindModel(p, model)
		if !ok || m.Capability != capability {
			return fmt.Errorf("invalid model for %s: %s (not a %s model of %s)", section, model, capability, name)
		}
	}

	if p.RequiresAPIKey() && c.ResolveAPIKey(name) == "" {
		return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)",
			name, name, provider.EnvVarForProvider(name))
	}
	return nil
}

func (c *Config) validateLanguages() error {
	src := c.Translation.SourceLanguage
	tgt := c.Translation.TargetLanguage
	if !language.IsSupported(src) {
		return fmt.Errorf("invalid translation.source_language: %q (use ISO-639-1 codes like 'en', 'es', 'fr')", src)
	}
	if !language.IsSupported(tgt) {
		return fmt.Errorf("invalid translation.target_language: %q (use ISO-639-1 codes like 'en', 'es', 'fr')", tgt)
	}
	if language.Normalize(src) == language.Normalize(tgt) {
		return fmt.Errorf("invalid translation.target_language: %s (must differ from source_language)", tgt)
	}
	if c.Translation.MaxTextLength <= 0 {
		return fmt.Errorf("invalid translation.max_text_length: %d", c.Translation.MaxTextLength)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MemoryMaxEntries <= 0 {
		return fmt.Errorf("invalid cache.memory_max_entries: %d", c.Cache.MemoryMaxEntries)
	}
	if c.Cache.PersistentMaxEntries <= 0 {
		return fmt.Errorf("invalid cache.persistent_max_entries: %d", c.Cache.PersistentMaxEntries)
	}
	if c.Cache.PersistentTrimBuffer < 0 || c.Cache.PersistentTrimBuffer >= c.Cache.PersistentMaxEntries {
		return fmt.Errorf("invalid cache.persistent_trim_buffer: %d (must be below persistent_max_entries)", c.Cache.PersistentTrimBuffer)
	}

	r := c.Cache.Remote
	if r.Enabled {
		if r.URL == "" {
			return fmt.Errorf("invalid cache.remote.url: empty (required when cache.remote.enabled = true)")
		}
		if err := validateHTTPURL(r.URL); err != nil {
			return fmt.Errorf("invalid cache.remote.url: %w", err)
		}
		if r.Timeout <= 0 {
			return fmt.Errorf("invalid cache.remote.timeout: %v", r.Timeout)
		}
		if r.FailureThreshold == 0 {
			return fmt.Errorf("invalid cache.remote.failure_threshold: 0")
		}
		if r.Cooldown <= 0 {
			return fmt.Errorf("invalid cache.remote.cooldown: %v", r.Cooldown)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

func isKnownCategory(name string) bool {
	_, ok := ratelimit.DefaultRules()[ratelimit.Category(name)]
	return ok
}
