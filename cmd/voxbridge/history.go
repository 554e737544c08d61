package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxbridge/internal/bus"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/tui"
)

func historyCmd() *cobra.Command {
	var (
		raw   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the daemon's recent translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll {
				resp, err := bus.SendCommand(bus.CmdClearHistory)
				if err != nil {
					return fmt.Errorf("failed to clear history: %w", err)
				}
				return printReply(cmd.OutOrStdout(), resp)
			}
			resp, err := bus.SendCommand(bus.CmdHistory)
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}
			out, err := formatHistory(resp, raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON list")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "forget every remembered translation")

	return cmd
}

func formatHistory(resp string, raw bool) (string, error) {
	kind, payload, err := bus.ParseReply(resp)
	if err != nil {
		return "", err
	}
	if kind != bus.ReplyStatus {
		return "", fmt.Errorf("unexpected history reply: %q", strings.TrimSpace(resp))
	}
	if raw {
		return payload, nil
	}
	var entries []pipeline.HistoryEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return "", fmt.Errorf("failed to decode history: %w", err)
	}
	return tui.RenderHistory(entries), nil
}
