package provider

import "strings"

// GroqProvider implements Provider for Groq's OpenAI-compatible API
type GroqProvider struct{}

func (p *GroqProvider) Name() string {
	return ProviderGroq
}

func (p *GroqProvider) RequiresAPIKey() bool {
	return true
}

func (p *GroqProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "gsk_")
}

func (p *GroqProvider) BaseURL() string {
	return "https://api.groq.com/openai/v1"
}

func (p *GroqProvider) Models() []Model {
	return []Model{
		{ID: "whisper-large-v3-turbo", Name: "Whisper Large v3 Turbo", Description: "Fast multilingual transcription", Capability: Transcription},
		{ID: "whisper-large-v3", Name: "Whisper Large v3", Description: "Most accurate Whisper on Groq", Capability: Transcription},
		{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Description: "General purpose, good translation quality", Capability: Translation},
		{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B Instant", Description: "Lowest latency", Capability: Translation},
	}
}

func (p *GroqProvider) DefaultModel(c Capability) string {
	switch c {
	case Transcription:
		return "whisper-large-v3-turbo"
	case Translation:
		return "llama-3.3-70b-versatile"
	}
	return ""
}
