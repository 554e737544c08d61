package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/voxbridge/internal/config"
)

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration format (use '3s', '1m', etc.)")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// editCache sizes the local tiers and configures the shared remote tier.
func editCache(cfg *config.Config) error {
	memory := strconv.Itoa(cfg.Cache.MemoryMaxEntries)
	persistent := strconv.Itoa(cfg.Cache.PersistentMaxEntries)
	dbPath := cfg.Cache.DBPath
	remoteEnabled := cfg.Cache.Remote.Enabled

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Memory Entries").
				Description("Translations kept in memory").
				Value(&memory).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Saved Entries").
				Description("Translations kept on disk for offline use").
				Value(&persistent).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Database Path").
				Description("Empty = default data directory").
				Placeholder("(default)").
				Value(&dbPath),
			huh.NewConfirm().
				Title("Use a shared remote cache?").
				Description("Look up translations other devices already paid for").
				Value(&remoteEnabled),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Cache.MemoryMaxEntries, _ = strconv.Atoi(memory)
	cfg.Cache.PersistentMaxEntries, _ = strconv.Atoi(persistent)
	if cfg.Cache.PersistentTrimBuffer >= cfg.Cache.PersistentMaxEntries {
		cfg.Cache.PersistentTrimBuffer = cfg.Cache.PersistentMaxEntries / 10
	}
	cfg.Cache.DBPath = dbPath
	cfg.Cache.Remote.Enabled = remoteEnabled
	if !remoteEnabled {
		return nil
	}
	return editRemoteCache(cfg)
}

func editRemoteCache(cfg *config.Config) error {
	remoteURL := cfg.Cache.Remote.URL
	token := cfg.Cache.Remote.Token
	timeout := cfg.Cache.Remote.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Remote Cache URL").
				Description("Address of a 'voxbridge cache serve' instance").
				Placeholder("http://127.0.0.1:8787").
				Value(&remoteURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Token").
				Description("Bearer token, empty if the server has none").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewInput().
				Title("Timeout").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Cache.Remote.URL = remoteURL
	cfg.Cache.Remote.Token = token
	cfg.Cache.Remote.Timeout, _ = time.ParseDuration(timeout)
	return nil
}

// editNetwork sets forced offline mode and the connectivity check.
func editNetwork(cfg *config.Config) error {
	offline := cfg.Network.ForceOffline
	checkURL := cfg.Network.CheckURL

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Force offline mode?").
				Description("Only answer from saved translations").
				Value(&offline),
			huh.NewInput().
				Title("Connectivity Check URL").
				Description("Empty = assume online").
				Value(&checkURL).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validateURL(s)
				}),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Network.ForceOffline = offline
	cfg.Network.CheckURL = checkURL
	return nil
}
