package injection

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Injector hands translated text to the desktop.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

type Config struct {
	Clipboard        bool          // copy every translation to the clipboard
	ClipboardTimeout time.Duration // Timeout for clipboard operations
}

func DefaultConfig() Config {
	return Config{
		Clipboard:        false,
		ClipboardTimeout: 3 * time.Second,
	}
}

// NewInjector returns a clipboard injector, or Nop when the clipboard output
// is disabled.
func NewInjector(config Config) Injector {
	if !config.Clipboard {
		return Nop{}
	}
	return &clipboard{timeout: config.ClipboardTimeout, command: "wl-copy"}
}

type clipboard struct {
	timeout time.Duration
	command string
}

func (c *clipboard) Inject(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}
	if err := setClipboard(ctx, c.command, text, c.timeout); err != nil {
		return fmt.Errorf("failed to copy text to clipboard: %w", err)
	}
	log.Printf("Injection: copied %d characters to clipboard", len([]rune(text)))
	return nil
}

type Nop struct{}

func (Nop) Inject(context.Context, string) error { return nil }
