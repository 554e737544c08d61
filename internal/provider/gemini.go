package provider

import "strings"

// GeminiProvider implements Provider for the Gemini API. It only translates.
type GeminiProvider struct{}

func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

func (p *GeminiProvider) RequiresAPIKey() bool {
	return true
}

func (p *GeminiProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "AIza") && len(key) > 30
}

func (p *GeminiProvider) BaseURL() string {
	return "https://generativelanguage.googleapis.com/"
}

func (p *GeminiProvider) Models() []Model {
	return []Model{
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Description: "Fast, multilingual", Capability: Translation},
		{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite", Description: "Cheapest Gemini option", Capability: Translation},
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Description: "Highest quality", Capability: Translation},
	}
}

func (p *GeminiProvider) DefaultModel(c Capability) string {
	if c == Translation {
		return "gemini-2.5-flash"
	}
	return ""
}
