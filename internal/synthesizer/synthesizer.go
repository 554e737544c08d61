// Package synthesizer turns translated text into speech.
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/provider"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Audio, error)
}

type Request struct {
	Text     string
	Language string
}

// Audio is an encoded clip ready for playback.
type Audio struct {
	Data   []byte
	Format string // wav, mp3, opus, flac, aac, pcm
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	Voice    string
	Speed    float64
	Format   string
	BaseURL  string
}

func DefaultConfig() Config {
	return Config{
		Provider: provider.ProviderOpenAI,
		Model:    "tts-1",
		Voice:    "nova",
		Speed:    1.0,
		Format:   "wav",
	}
}

// maxSpeechBytes caps a synthesized clip.
const maxSpeechBytes = 25 << 20

func New(cfg Config) (Synthesizer, error) {
	p := provider.GetProvider(cfg.Provider)
	if p == nil || !provider.Supports(cfg.Provider, provider.Synthesis) {
		return nil, fmt.Errorf("unsupported synthesis provider: %s", cfg.Provider)
	}
	if p.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel(provider.Synthesis)
	}
	if m, ok := provider.FindModel(p, cfg.Model); ok && !m.SupportsVoice(cfg.Voice) {
		return nil, fmt.Errorf("voice %q not available for %s", cfg.Voice, cfg.Model)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL()
	}
	return NewSpeechAdapter(cfg), nil
}

// SpeechAdapter calls OpenAI's audio/speech endpoint.
type SpeechAdapter struct {
	client *openai.Client
	config Config
}

func NewSpeechAdapter(cfg Config) *SpeechAdapter {
	def := DefaultConfig()
	if cfg.Voice == "" {
		cfg.Voice = def.Voice
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.Speed == 0 {
		cfg.Speed = def.Speed
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &SpeechAdapter{client: openai.NewClientWithConfig(clientConfig), config: cfg}
}

func (a *SpeechAdapter) Synthesize(ctx context.Context, req Request) (Audio, error) {
	if req.Text == "" {
		return Audio{}, apperr.New(apperr.Validation, "nothing to synthesize")
	}

	start := time.Now()
	resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(a.config.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(a.config.Voice),
		ResponseFormat: openai.SpeechResponseFormat(a.config.Format),
		Speed:          a.config.Speed,
	})
	if err != nil {
		log.Printf("Synthesizer: speech call failed after %v: %v", time.Since(start), err)
		return Audio{}, provider.Classify(fmt.Errorf("openai speech: %w", err))
	}
	defer resp.Close()

	data, err := io.ReadAll(io.LimitReader(resp, maxSpeechBytes+1))
	if err != nil {
		return Audio{}, provider.Classify(fmt.Errorf("read speech: %w", err))
	}
	if len(data) == 0 || len(data) > maxSpeechBytes {
		return Audio{}, &apperr.Error{
			Code:    apperr.Upstream,
			Message: fmt.Sprintf("speech response of %d bytes is unusable", len(data)),
			Status:  http.StatusBadGateway,
			Err:     errors.New("bad speech payload"),
		}
	}

	log.Printf("Synthesizer: %d chars -> %d bytes of %s in %v", len(req.Text), len(data), a.config.Format, time.Since(start))
	return Audio{Data: data, Format: a.config.Format}, nil
}
