package translator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/voxbridge/internal/provider"
)

// ChatAdapter implements Translator using an OpenAI-compatible chat
// completions API (OpenAI, Groq)
type ChatAdapter struct {
	client *openai.Client
	config Config
}

func NewChatAdapter(cfg Config) *ChatAdapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &ChatAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

func (a *ChatAdapter) Translate(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: a.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(req.SourceLang, req.TargetLang, a.config.Keywords)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(req.Text, a.config.CustomPrompt)},
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		log.Printf("Translator: %s call failed after %v: %v", a.config.Provider, duration, err)
		return "", provider.Classify(fmt.Errorf("%s chat completion: %w", a.config.Provider, err))
	}
	if len(resp.Choices) == 0 {
		return "", emptyResponse("chat completion returned no choices")
	}

	result := cleanOutput(resp.Choices[0].Message.Content)
	if result == "" {
		return "", emptyResponse("chat completion returned an empty translation")
	}
	log.Printf("Translator: %s translated %d chars %s->%s in %v", a.config.Provider, len(req.Text), req.SourceLang, req.TargetLang, duration)
	return result, nil
}
