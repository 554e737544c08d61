// Package translator runs the remote translate operation against a hosted
// model.
package translator

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/voxbridge/internal/provider"
)

type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// Keywords are terms whose spelling must be kept, such as place names.
	Keywords     []string
	CustomPrompt string
}

// New creates the translator for cfg.Provider.
func New(ctx context.Context, cfg Config) (Translator, error) {
	p := provider.GetProvider(cfg.Provider)
	if p == nil || !provider.Supports(cfg.Provider, provider.Translation) {
		return nil, fmt.Errorf("unsupported translation provider: %s", cfg.Provider)
	}
	if p.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel(provider.Translation)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL()
	}

	switch cfg.Provider {
	case provider.ProviderGemini:
		return NewGeminiAdapter(ctx, cfg)
	default:
		return NewChatAdapter(cfg), nil
	}
}
