package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/provider"
)

// providerDisplayNames maps provider IDs to human-readable names
var providerDisplayNames = map[string]string{
	provider.ProviderOpenAI: "OpenAI",
	provider.ProviderGroq:   "Groq",
	provider.ProviderGemini: "Gemini",
}

// providerBlurbs says what each provider can do in the pipeline.
var providerBlurbs = map[string]string{
	provider.ProviderOpenAI: "Whisper + GPT + TTS",
	provider.ProviderGroq:   "Whisper + Llama",
	provider.ProviderGemini: "Gemini translation",
}

func getProviderDisplayName(providerName string) string {
	if name, ok := providerDisplayNames[providerName]; ok {
		return name
	}
	return providerName
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// getConfiguredProviders returns the sorted providers that have an API key,
// from the config or the environment.
func getConfiguredProviders(cfg *config.Config) []string {
	var providers []string
	for _, name := range provider.ListProviders() {
		if cfg.ResolveAPIKey(name) != "" {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

func formatProviderOption(cfg *config.Config, name string) string {
	status := "(not configured)"
	switch {
	case cfg.Providers[name].APIKey != "":
		status = "(configured)"
	case provider.KeyFromEnv(name) != "":
		status = fmt.Sprintf("(from $%s)", provider.EnvVarForProvider(name))
	}
	label := getProviderDisplayName(name)
	if blurb := providerBlurbs[name]; blurb != "" {
		label += " - " + blurb
	}
	return label + " " + status
}

// editProviders lets the user set API keys one provider at a time.
func editProviders(cfg *config.Config, onboarding bool) error {
	exitLabel := "Done"
	if onboarding {
		exitLabel = "Next"
	}
	defaultToExit := false

	for {
		var options []huh.Option[string]
		for _, name := range provider.ListProviders() {
			options = append(options, huh.NewOption(formatProviderOption(cfg, name), name))
		}
		options = append(options, huh.NewOption(exitLabel, "back"))

		selected := ""
		if defaultToExit {
			selected = "back"
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Provider Settings").
					Description("Select a provider to configure its API key").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}
		if selected == "back" {
			if onboarding && len(getConfiguredProviders(cfg)) == 0 {
				fmt.Println(StyleWarning.Render("Configure at least one provider to continue."))
				continue
			}
			return nil
		}

		apiKey, err := configureSingleProvider(cfg, selected)
		if err != nil {
			continue
		}
		if apiKey != "" {
			setAPIKey(cfg, selected, apiKey)
			defaultToExit = true
		}
	}
}

func setAPIKey(cfg *config.Config, providerName, apiKey string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	cfg.Providers[providerName] = config.ProviderConfig{APIKey: apiKey}
}

// configureSingleProvider asks before replacing an existing key. It returns
// the new key, or "" when the user kept the current one.
func configureSingleProvider(cfg *config.Config, providerName string) (string, error) {
	if existingKey := cfg.Providers[providerName].APIKey; existingKey != "" {
		var update bool
		confirmForm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s API Key", getProviderDisplayName(providerName))).
					Description(fmt.Sprintf("Current: %s", maskAPIKey(existingKey))).
					Affirmative("Update key").
					Negative("Keep current").
					Value(&update),
			),
		).WithTheme(getTheme())

		if err := confirmForm.Run(); err != nil {
			return "", err
		}
		if !update {
			return "", nil
		}
	}
	return inputAPIKey(providerName)
}

func inputAPIKey(providerName string) (string, error) {
	displayName := getProviderDisplayName(providerName)

	var apiKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API Key", displayName)).
				Description(fmt.Sprintf("Enter your %s API key", displayName)).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error { return validateAPIKey(providerName, s) }),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return apiKey, nil
}

func validateAPIKey(providerName, key string) error {
	if key == "" {
		return fmt.Errorf("API key is required")
	}
	if p := provider.GetProvider(providerName); p != nil && !p.ValidateAPIKey(key) {
		return fmt.Errorf("invalid API key format for %s", getProviderDisplayName(providerName))
	}
	return nil
}

// ensureProviderConfigured prompts for a key when providerName has none.
func ensureProviderConfigured(cfg *config.Config, providerName string) {
	if cfg.ResolveAPIKey(providerName) != "" {
		return
	}
	apiKey, err := configureSingleProvider(cfg, providerName)
	if err != nil || apiKey == "" {
		return
	}
	setAPIKey(cfg, providerName, apiKey)
}
