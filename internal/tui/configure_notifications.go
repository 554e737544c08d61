package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/notify"
)

// editNotifications handles the notifications section edit with type and custom messages
func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled

	desc := "Show notifications for recording, translation and errors"
	if cfg.Notifications.Enabled {
		desc = fmt.Sprintf("Currently: enabled (%s). %s", cfg.Notifications.Type, desc)
	} else {
		desc = "Currently: disabled. " + desc
	}

	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description(desc).
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := enableForm.Run(); err != nil {
		return err
	}
	cfg.Notifications.Enabled = enabled
	if !enabled {
		return nil
	}

	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}
	var configureMessages bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Description("How should notifications be displayed?").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
			huh.NewConfirm().
				Title("Configure custom notification messages?").
				Affirmative("Yes").
				Negative("No, use defaults").
				Value(&configureMessages),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Notifications.Type = notifType

	if configureMessages {
		return editNotificationMessages(cfg)
	}
	return nil
}

// messageConfig returns the config slot for a message key, nil if unknown.
func messageConfig(cfg *config.Config, configKey string) *config.MessageConfig {
	m := &cfg.Notifications.Messages
	switch configKey {
	case "recording_started":
		return &m.RecordingStarted
	case "translating":
		return &m.Translating
	case "translated":
		return &m.Translated
	case "cancelled":
		return &m.Cancelled
	case "replaying":
		return &m.Replaying
	case "languages_swapped":
		return &m.LanguagesSwapped
	case "config_reloaded":
		return &m.ConfigReloaded
	case "recording_limit":
		return &m.RecordingLimit
	}
	return nil
}

func editNotificationMessages(cfg *config.Config) error {
	for {
		var options []huh.Option[string]
		for _, def := range notify.MessageDefs {
			title := def.DefaultTitle
			if mc := messageConfig(cfg, def.ConfigKey); mc != nil && mc.Title != "" {
				title = mc.Title
			}
			if len(title) > 30 {
				title = title[:30] + "..."
			}
			options = append(options, huh.NewOption(fmt.Sprintf("%s: %q", def.ConfigKey, title), def.ConfigKey))
		}
		options = append(options, huh.NewOption("Back", "back"))

		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Notification Messages").
					Description("Select a message to edit").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())
		if err := form.Run(); err != nil {
			return err
		}
		if selected == "back" {
			return nil
		}
		if err := editSingleMessage(cfg, selected); err != nil {
			continue
		}
	}
}

func editSingleMessage(cfg *config.Config, configKey string) error {
	var def notify.MessageDef
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == configKey {
			def = d
			break
		}
	}
	mc := messageConfig(cfg, configKey)
	if mc == nil {
		return fmt.Errorf("unknown message %q", configKey)
	}

	title, body := mc.Title, mc.Body
	if title == "" {
		title = def.DefaultTitle
	}
	if body == "" {
		body = def.DefaultBody
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description(fmt.Sprintf("Default: %s", def.DefaultTitle)).
				Placeholder(def.DefaultTitle).
				Value(&title),
			huh.NewInput().
				Title("Body").
				Description(fmt.Sprintf("Default: %s", def.DefaultBody)).
				Placeholder(def.DefaultBody).
				Value(&body),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	*mc = config.MessageConfig{Title: title, Body: body}
	return nil
}

// editOutput configures copying translations to the clipboard.
func editOutput(cfg *config.Config) error {
	clipboard := cfg.Output.Clipboard
	timeout := cfg.Output.ClipboardTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Copy translations to the clipboard?").
				Description("Uses wl-copy").
				Value(&clipboard),
			huh.NewInput().
				Title("Clipboard Timeout").
				Description("Timeout for clipboard operations (e.g., '3s')").
				Placeholder("3s").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Output.Clipboard = clipboard
	cfg.Output.ClipboardTimeout, _ = time.ParseDuration(timeout)
	return nil
}
