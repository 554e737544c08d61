package translator

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"

	"github.com/leonardotrapani/voxbridge/internal/provider"
)

// GeminiAdapter implements Translator with the Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	config Config
}

func NewGeminiAdapter(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiAdapter{client: client, config: cfg}, nil
}

func (a *GeminiAdapter) Translate(ctx context.Context, req Request) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			BuildSystemPrompt(req.SourceLang, req.TargetLang, a.config.Keywords), genai.RoleUser),
		Temperature: genai.Ptr[float32](0.2),
	}

	start := time.Now()
	resp, err := a.client.Models.GenerateContent(ctx, a.config.Model,
		genai.Text(BuildUserPrompt(req.Text, a.config.CustomPrompt)), genCfg)
	duration := time.Since(start)

	if err != nil {
		log.Printf("Translator: gemini call failed after %v: %v", duration, err)
		return "", provider.Classify(fmt.Errorf("gemini generate content: %w", err))
	}

	result := cleanOutput(resp.Text())
	if result == "" {
		return "", emptyResponse("gemini returned an empty translation")
	}
	log.Printf("Translator: gemini translated %d chars %s->%s in %v", len(req.Text), req.SourceLang, req.TargetLang, duration)
	return result, nil
}
