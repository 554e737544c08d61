package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/language"
)

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatLanguagesLabel(cfg *config.Config) string {
	return fmt.Sprintf("Languages (%s → %s)",
		language.Name(cfg.Translation.SourceLanguage), language.Name(cfg.Translation.TargetLanguage))
}

func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "Providers (none configured)"
	}
	return fmt.Sprintf("Providers (%s)", strings.Join(configured, ", "))
}

func formatModelsLabel(cfg *config.Config) string {
	return fmt.Sprintf("Models (%s, %s)", cfg.Transcription.Model, cfg.Translation.Model)
}

func formatSynthesisLabel(cfg *config.Config) string {
	if !cfg.Synthesis.Enabled {
		return "Speech (off)"
	}
	return fmt.Sprintf("Speech (%s, %s)", cfg.Synthesis.Model, cfg.Synthesis.Voice)
}

func formatCacheLabel(cfg *config.Config) string {
	return fmt.Sprintf("Cache (%d saved, remote %s)", cfg.Cache.PersistentMaxEntries, onOff(cfg.Cache.Remote.Enabled))
}

func formatNetworkLabel(cfg *config.Config) string {
	if cfg.Network.ForceOffline {
		return "Network (forced offline)"
	}
	return "Network"
}

func formatOutputLabel(cfg *config.Config) string {
	return fmt.Sprintf("Clipboard (%s)", onOff(cfg.Output.Clipboard))
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// summaryRows is the label/value table shown before saving.
func summaryRows(cfg *config.Config) [][2]string {
	rows := [][2]string{
		{"Languages:", fmt.Sprintf("%s → %s", language.Label(cfg.Translation.SourceLanguage), language.Label(cfg.Translation.TargetLanguage))},
		{"Providers:", strings.Join(getConfiguredProviders(cfg), ", ")},
		{"Transcription:", fmt.Sprintf("%s (%s)", cfg.Transcription.Provider, cfg.Transcription.Model)},
		{"Translation:", fmt.Sprintf("%s (%s)", cfg.Translation.Provider, cfg.Translation.Model)},
	}
	if cfg.Synthesis.Enabled {
		rows = append(rows, [2]string{"Speech:", fmt.Sprintf("%s (%s, voice %s, %gx)",
			cfg.Synthesis.Provider, cfg.Synthesis.Model, cfg.Synthesis.Voice, cfg.Synthesis.Speed)})
	} else {
		rows = append(rows, [2]string{"Speech:", "disabled"})
	}
	remote := "disabled"
	if cfg.Cache.Remote.Enabled {
		remote = cfg.Cache.Remote.URL
	}
	rows = append(rows,
		[2]string{"Cache:", fmt.Sprintf("%d in memory, %d saved", cfg.Cache.MemoryMaxEntries, cfg.Cache.PersistentMaxEntries)},
		[2]string{"Remote cache:", remote},
		[2]string{"Offline mode:", onOff(cfg.Network.ForceOffline)},
		[2]string{"Clipboard:", onOff(cfg.Output.Clipboard)},
		[2]string{"Notifications:", formatNotificationsLabel(cfg)},
	)
	return rows
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, row := range summaryRows(cfg) {
		fmt.Printf("  %s %s\n", StyleLabel.Render(row[0]), row[1])
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Println(StyleWarning.Render("Warning: " + err.Error()))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
