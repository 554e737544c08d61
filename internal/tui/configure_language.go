package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/language"
)

// getLanguageOptions lists every supported language, marking current.
func getLanguageOptions(current string) []huh.Option[string] {
	var options []huh.Option[string]
	for _, l := range language.List() {
		label := fmt.Sprintf("%s (%s)", l.Name, l.Code)
		if l.NativeName != "" && l.NativeName != l.Name {
			label = fmt.Sprintf("%s - %s (%s)", l.Name, l.NativeName, l.Code)
		}
		if l.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, l.Code))
	}
	return options
}

func validateLanguagePair(source, target string) error {
	if !language.IsSupported(source) {
		return fmt.Errorf("unsupported language %q", source)
	}
	if !language.IsSupported(target) {
		return fmt.Errorf("unsupported language %q", target)
	}
	if language.Normalize(source) == language.Normalize(target) {
		return fmt.Errorf("source and target must differ")
	}
	return nil
}

// editLanguages picks the spoken and the translated language.
func editLanguages(cfg *config.Config) error {
	source := cfg.Translation.SourceLanguage
	target := cfg.Translation.TargetLanguage

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("I speak").
				Description("Language you record in").
				Options(getLanguageOptions(source)...).
				Filtering(true).
				Value(&source),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Translate to").
				Description("Language the translation is spoken in").
				Options(getLanguageOptions(target)...).
				Filtering(true).
				Value(&target).
				Validate(func(t string) error { return validateLanguagePair(source, t) }),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Translation.SourceLanguage = source
	cfg.Translation.TargetLanguage = target
	return nil
}
