package provider

import "strings"

// OpenAIProvider implements Provider for OpenAI services
type OpenAIProvider struct{}

var openaiVoices = []string{"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) RequiresAPIKey() bool {
	return true
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) BaseURL() string {
	return "https://api.openai.com/v1"
}

func (p *OpenAIProvider) Models() []Model {
	return []Model{
		{ID: "whisper-1", Name: "Whisper 1", Description: "OpenAI's production speech-to-text model", Capability: Transcription},
		{ID: "gpt-4o-mini-transcribe", Name: "GPT-4o Mini Transcribe", Description: "Cheaper GPT-4o based transcription", Capability: Transcription},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Fast and affordable GPT-4 variant", Capability: Translation},
		{ID: "gpt-4o", Name: "GPT-4o", Description: "Most capable GPT-4 model", Capability: Translation},
		{ID: "tts-1", Name: "TTS 1", Description: "Low latency text-to-speech", Capability: Synthesis, Voices: openaiVoices},
		{ID: "tts-1-hd", Name: "TTS 1 HD", Description: "Higher quality text-to-speech", Capability: Synthesis, Voices: openaiVoices},
	}
}

func (p *OpenAIProvider) DefaultModel(c Capability) string {
	switch c {
	case Transcription:
		return "whisper-1"
	case Translation:
		return "gpt-4o-mini"
	case Synthesis:
		return "tts-1"
	}
	return ""
}
