// Package tui holds the interactive configure wizard and the styled
// renderings used by the CLI.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/voxbridge/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionLanguages     ConfigSection = "languages"
	SectionProviders     ConfigSection = "providers"
	SectionModels        ConfigSection = "models"
	SectionSynthesis     ConfigSection = "synthesis"
	SectionCache         ConfigSection = "cache"
	SectionNetwork       ConfigSection = "network"
	SectionOutput        ConfigSection = "output"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration wizard. A config without any provider key
// gets the guided first-run flow, anything else the section menu.
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	if existingConfig == nil {
		existingConfig = config.DefaultConfig()
	}
	if hasUserChanges(existingConfig) {
		return runEditExisting(existingConfig)
	}
	return runFreshInstall(existingConfig)
}

// hasUserChanges detects if config has user modifications
func hasUserChanges(cfg *config.Config) bool {
	return len(getConfiguredProviders(cfg)) > 0
}

func runFreshInstall(cfg *config.Config) (*ConfigureResult, error) {
	clearScreen()
	fmt.Println(Logo())
	fmt.Println()
	fmt.Println(StyleMuted.Render("Speak in one language, hear it in another."))
	fmt.Println()

	steps := []func(*config.Config) error{
		editLanguages,
		func(c *config.Config) error { return editProviders(c, true) },
		editModels,
		editSynthesis,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
		clearScreen()
	}

	confirmed, err := showSummary(cfg)
	if err != nil || !confirmed {
		return &ConfigureResult{Cancelled: true}, nil
	}
	return &ConfigureResult{Config: cfg}, nil
}

func runEditExisting(cfg *config.Config) (*ConfigureResult, error) {
	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		var editErr error
		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionLanguages:
			editErr = editLanguages(cfg)
		case SectionProviders:
			editErr = editProviders(cfg, false)
		case SectionModels:
			editErr = editModels(cfg)
		case SectionSynthesis:
			editErr = editSynthesis(cfg)
		case SectionCache:
			editErr = editCache(cfg)
		case SectionNetwork:
			editErr = editNetwork(cfg)
		case SectionOutput:
			editErr = editOutput(cfg)
		case SectionNotifications:
			editErr = editNotifications(cfg)
		}
		if editErr != nil {
			continue
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatLanguagesLabel(cfg), SectionLanguages),
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption(formatModelsLabel(cfg), SectionModels),
		huh.NewOption(formatSynthesisLabel(cfg), SectionSynthesis),
		huh.NewOption(formatCacheLabel(cfg), SectionCache),
		huh.NewOption(formatNetworkLabel(cfg), SectionNetwork),
		huh.NewOption(formatOutputLabel(cfg), SectionOutput),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
