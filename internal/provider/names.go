package provider

import "os"

// Provider name constants for config and registry
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Environment variable names for API keys
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGroqKey   = "GROQ_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
)

// EnvVarForProvider returns the environment variable name for a provider's API key
func EnvVarForProvider(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return EnvOpenAIKey
	case ProviderGroq:
		return EnvGroqKey
	case ProviderGemini:
		return EnvGeminiKey
	default:
		return ""
	}
}

// KeyFromEnv reads the provider's API key from its environment variable.
func KeyFromEnv(provider string) string {
	env := EnvVarForProvider(provider)
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}
