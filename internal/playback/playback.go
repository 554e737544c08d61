// Package playback plays synthesized speech through PipeWire.
package playback

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
)

type Player interface {
	Play(ctx context.Context, audio synthesizer.Audio) error
}

// PipeWire plays clips with pw-play. The clip is written to a temporary file
// because pw-play needs a seekable container.
type PipeWire struct {
	Command string
	// Args go before the file name.
	Args   []string
	Target string
}

func NewPipeWire(target string) *PipeWire {
	return &PipeWire{Command: "pw-play", Target: target}
}

func (p *PipeWire) Play(ctx context.Context, audio synthesizer.Audio) error {
	if len(audio.Data) == 0 {
		return nil
	}

	ext := audio.Format
	if ext == "" {
		ext = "wav"
	}
	f, err := os.CreateTemp("", "voxbridge-*."+ext)
	if err != nil {
		return fmt.Errorf("create playback file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		return fmt.Errorf("write playback file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close playback file: %w", err)
	}

	args := append([]string{}, p.Args...)
	if p.Target != "" {
		args = append(args, "--target", p.Target)
	}
	args = append(args, f.Name())

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return apperr.Wrap(apperr.Cancelled, ctx.Err())
	}
	if err != nil {
		log.Printf("Playback: %s failed: %v: %s", p.Command, err, strings.TrimSpace(string(out)))
		return apperr.Wrap(apperr.Device, fmt.Errorf("%s: %w", p.Command, err))
	}

	log.Printf("Playback: played %d bytes in %v", len(audio.Data), time.Since(start))
	return nil
}

// Nop discards audio. Used when playback is disabled.
type Nop struct{}

func (Nop) Play(context.Context, synthesizer.Audio) error { return nil }

func CheckAvailable() error {
	if _, err := exec.LookPath("pw-play"); err != nil {
		return fmt.Errorf("pw-play not found: %w (install pipewire-tools)", err)
	}
	return nil
}
