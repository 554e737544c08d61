package transcriber

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/voxbridge/internal/provider"
	"github.com/leonardotrapani/voxbridge/internal/recording"
)

// Transcriber turns one finished utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Audio    []byte
	Encoding recording.Encoding
	// Language is an ISO 639-1 hint; empty lets the model detect it.
	Language string
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider's API root.
	BaseURL string
}

func DefaultConfig() Config {
	return Config{
		Provider: provider.ProviderOpenAI,
		Model:    "whisper-1",
	}
}

// New creates the transcriber for cfg.Provider.
func New(cfg Config) (Transcriber, error) {
	p := provider.GetProvider(cfg.Provider)
	if p == nil || !provider.Supports(cfg.Provider, provider.Transcription) {
		return nil, fmt.Errorf("unsupported transcription provider: %s", cfg.Provider)
	}
	if p.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel(provider.Transcription)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL()
	}
	return NewWhisperAdapter(cfg), nil
}
