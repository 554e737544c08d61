package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/provider"
)

// WhisperAdapter talks to any OpenAI-compatible audio/transcriptions
// endpoint; OpenAI and Groq differ only in base URL and model.
type WhisperAdapter struct {
	client *openai.Client
	config Config
}

func NewWhisperAdapter(config Config) *WhisperAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &WhisperAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Transcribe returns NO_SPEECH_DETECTED when the model heard nothing.
func (a *WhisperAdapter) Transcribe(ctx context.Context, req Request) (string, error) {
	if len(req.Audio) == 0 {
		return "", apperr.New(apperr.NoSpeech, "no audio was recorded")
	}

	wavData, err := EncodeWAV(req.Audio, req.Encoding)
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, fmt.Errorf("convert to WAV: %w", err))
	}

	audioReq := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: req.Language,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, audioReq)
	duration := time.Since(start)

	if err != nil {
		log.Printf("Transcriber: %s call failed after %v: %v", a.config.Provider, duration, err)
		return "", provider.Classify(fmt.Errorf("%s transcription: %w", a.config.Provider, err))
	}

	text := strings.TrimSpace(resp.Text)
	log.Printf("Transcriber: %s transcribed %d bytes in %v", a.config.Provider, len(req.Audio), duration)
	if text == "" {
		return "", apperr.New(apperr.NoSpeech, "no speech detected in the recording")
	}
	return text, nil
}
