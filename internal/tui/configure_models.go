package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/provider"
)

// getProviderOptions lists providers that can serve c.
func getProviderOptions(cfg *config.Config, c provider.Capability) []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range provider.ListProvidersWith(c) {
		label := getProviderDisplayName(name)
		if cfg.ResolveAPIKey(name) == "" {
			label += " (needs API key)"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

// getModelOptions lists providerName's models for c, marking current.
func getModelOptions(providerName string, c provider.Capability, current string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	var options []huh.Option[string]
	for _, m := range provider.ModelsWith(p, c) {
		label := m.ID
		if m.Description != "" {
			label = fmt.Sprintf("%s - %s", m.ID, m.Description)
		}
		if m.ID == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, m.ID))
	}
	return options
}

// pickModel keeps current when the provider offers it, otherwise falls back
// to the provider default.
func pickModel(providerName string, c provider.Capability, current string) string {
	p := provider.GetProvider(providerName)
	if p == nil {
		return current
	}
	if m, ok := provider.FindModel(p, current); ok && m.Capability == c {
		return current
	}
	return p.DefaultModel(c)
}

// selectStage chooses provider and model for one remote operation.
func selectStage(cfg *config.Config, c provider.Capability, providerName, model string) (string, string, error) {
	title := capabilityTitle(c)

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title + " Provider").
				Options(getProviderOptions(cfg, c)...).
				Value(&providerName),
		),
	).WithTheme(getTheme())
	if err := providerForm.Run(); err != nil {
		return "", "", err
	}
	ensureProviderConfigured(cfg, providerName)

	model = pickModel(providerName, c, model)
	modelForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title + " Model").
				Options(getModelOptions(providerName, c, model)...).
				Value(&model),
		),
	).WithTheme(getTheme())
	if err := modelForm.Run(); err != nil {
		return "", "", err
	}
	return providerName, model, nil
}

func capabilityTitle(c provider.Capability) string {
	switch c {
	case provider.Transcription:
		return "Transcription"
	case provider.Translation:
		return "Translation"
	case provider.Synthesis:
		return "Speech"
	}
	return c.String()
}

// editModels configures the transcription and translation stages.
func editModels(cfg *config.Config) error {
	p, m, err := selectStage(cfg, provider.Transcription, cfg.Transcription.Provider, cfg.Transcription.Model)
	if err != nil {
		return err
	}
	cfg.Transcription.Provider, cfg.Transcription.Model = p, m

	p, m, err = selectStage(cfg, provider.Translation, cfg.Translation.Provider, cfg.Translation.Model)
	if err != nil {
		return err
	}
	cfg.Translation.Provider, cfg.Translation.Model = p, m
	return nil
}

func getVoiceOptions(providerName, model, current string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	m, ok := provider.FindModel(p, model)
	if !ok {
		return nil
	}
	var options []huh.Option[string]
	for _, v := range m.Voices {
		label := v
		if v == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, v))
	}
	return options
}

func validateSpeed(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if v < 0.25 || v > 4 {
		return fmt.Errorf("must be between 0.25 and 4")
	}
	return nil
}

// editSynthesis turns spoken output on or off and picks the voice.
func editSynthesis(cfg *config.Config) error {
	enabled := cfg.Synthesis.Enabled
	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Speak translations aloud?").
				Description("Synthesize each translation and play it through PipeWire").
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := enableForm.Run(); err != nil {
		return err
	}
	cfg.Synthesis.Enabled = enabled
	cfg.Playback.Enabled = enabled
	if !enabled {
		return nil
	}

	p, m, err := selectStage(cfg, provider.Synthesis, cfg.Synthesis.Provider, cfg.Synthesis.Model)
	if err != nil {
		return err
	}
	cfg.Synthesis.Provider, cfg.Synthesis.Model = p, m

	voice := cfg.Synthesis.Voice
	speed := strconv.FormatFloat(cfg.Synthesis.Speed, 'f', -1, 64)
	fields := []huh.Field{
		huh.NewInput().
			Title("Speed").
			Description("Playback speed from 0.25 to 4").
			Value(&speed).
			Validate(validateSpeed),
	}
	if voices := getVoiceOptions(p, m, voice); len(voices) > 0 {
		fields = append([]huh.Field{
			huh.NewSelect[string]().
				Title("Voice").
				Options(voices...).
				Value(&voice),
		}, fields...)
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Synthesis.Voice = voice
	cfg.Synthesis.Speed, _ = strconv.ParseFloat(speed, 64)
	return nil
}
