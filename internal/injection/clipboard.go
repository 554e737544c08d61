package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

func setClipboard(ctx context.Context, command, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command)
	cmd.Stdin = strings.NewReader(text)

	if output, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", command, err, msg)
		}
		return fmt.Errorf("%s failed: %w", command, err)
	}

	return nil
}

func CheckClipboardAvailable() error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	return nil
}
