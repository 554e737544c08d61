package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/conversation"
	"github.com/leonardotrapani/voxbridge/internal/tui"
)

func converseCmd() *cobra.Command {
	var (
		langA string
		langB string
		speak bool
	)

	cmd := &cobra.Command{
		Use:   "converse",
		Short: "Relay a typed conversation between two languages",
		Long: `Take turns typing lines for two people. Person A speaks --a, person B
speaks --b, and each line is translated for the other person. The turn passes
automatically after every line.

Commands: /a or /b hands the turn over, /replay says the last line again,
/log prints the whole conversation, /clear starts over, /quit leaves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, comp, err := standalone(ctx, speak)
			if err != nil {
				return err
			}
			defer comp.Close()

			if langA == "" {
				langA = cfg.Translation.SourceLanguage
			}
			if langB == "" {
				langB = cfg.Translation.TargetLanguage
			}
			s, err := conversation.New(comp.Orchestrator, langA, langB, clock.Real{})
			if err != nil {
				return err
			}
			return converse(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), s, speak)
		},
	}

	cmd.Flags().StringVar(&langA, "a", "", "language of person A (default source language)")
	cmd.Flags().StringVar(&langB, "b", "", "language of person B (default target language)")
	cmd.Flags().BoolVar(&speak, "speak", false, "read every translation aloud")

	return cmd
}

// converse reads turns from in until EOF or /quit. A failed turn is reported
// and the same person may try again.
func converse(ctx context.Context, in io.Reader, out io.Writer, s *conversation.Session, speak bool) error {
	scanner := bufio.NewScanner(in)
	prompt := func() {
		speaker, _ := s.Languages(s.Current())
		fmt.Fprintf(out, "%s ", tui.StyleLabel.Render(fmt.Sprintf("%s (%s)>", s.Current(), speaker)))
	}

	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit":
			return nil
		case "/a", "/A":
			_ = s.SetCurrent(conversation.A)
		case "/b", "/B":
			_ = s.SetCurrent(conversation.B)
		case "/clear":
			s.Clear()
			fmt.Fprintln(out, tui.StyleMuted.Render("conversation cleared"))
		case "/log":
			for _, m := range s.Messages() {
				fmt.Fprintln(out, tui.RenderMessage(m))
			}
		case "/replay":
			last, ok := s.Last()
			if !ok {
				fmt.Fprintln(out, tui.StyleMuted.Render("nothing said yet"))
				break
			}
			if err := s.Play(ctx, last.ID); err != nil {
				reportTurnError(out, err)
			}
		default:
			msg, err := s.Say(ctx, line)
			if err != nil {
				reportTurnError(out, err)
				break
			}
			fmt.Fprintln(out, tui.RenderMessage(msg))
			if speak {
				if err := s.Play(ctx, msg.ID); err != nil {
					reportTurnError(out, err)
				}
			}
		}
		prompt()
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func reportTurnError(out io.Writer, err error) {
	if apperr.IsCancelled(err) {
		return
	}
	log.Printf("Conversation: turn failed: %v", err)
	fmt.Fprintln(out, tui.StyleError.Render(errorMessage(err)))
}

func errorMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}
