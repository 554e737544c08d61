package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxbridge/internal/bus"
	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/daemon"
	"github.com/leonardotrapani/voxbridge/internal/deps"
	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "voxbridge",
		Short:        "Speak in one language, hear it in another",
		SilenceUsage: true,
	}
	root.AddCommand(
		serveCmd(),
		toggleCmd(),
		cancelCmd(),
		statusCmd(),
		replayCmd(),
		swapCmd(),
		versionCmd(),
		stopCmd(),
		resetCmd(),
		translateCmd(),
		configureCmd(),
		cacheCmd(),
		doctorCmd(),
		historyCmd(),
		phraseCmd(),
		converseCmd(),
	)
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return daemon.New(mgr, nil).Run()
		},
	}
}

// sendCmd builds the thin commands that forward one byte to the daemon.
func sendCmd(use, short string, c byte, what string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", what, err)
			}
			return printReply(cmd.OutOrStdout(), resp)
		},
	}
}

// printReply prints the payload of an OK reply and turns ERR into an error.
func printReply(w io.Writer, resp string) error {
	_, payload, err := bus.ParseReply(resp)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, payload)
	return nil
}

func toggleCmd() *cobra.Command {
	return sendCmd("toggle", "Start recording, or stop and translate", bus.CmdToggle, "toggle recording")
}

func cancelCmd() *cobra.Command {
	return sendCmd("cancel", "Cancel the current recording or translation", bus.CmdCancel, "cancel operation")
}

func replayCmd() *cobra.Command {
	return sendCmd("replay", "Play the last translation again", bus.CmdReplay, "replay translation")
}

func swapCmd() *cobra.Command {
	return sendCmd("swap", "Swap source and target languages", bus.CmdSwap, "swap languages")
}

func versionCmd() *cobra.Command {
	return sendCmd("version", "Get protocol version", bus.CmdVersion, "get version")
}

func stopCmd() *cobra.Command {
	return sendCmd("stop", "Stop the daemon", bus.CmdQuit, "stop daemon")
}

func resetCmd() *cobra.Command {
	return sendCmd("reset", "Ask for the microphone again and clear rate limits and the memory cache", bus.CmdReset, "reset daemon state")
}

func statusCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state, languages and cache counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			out, err := formatStatus(resp, raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON snapshot")

	return cmd
}

func formatStatus(resp string, raw bool) (string, error) {
	kind, payload, err := bus.ParseReply(resp)
	if err != nil {
		return "", err
	}
	if kind != bus.ReplyStatus {
		return "", fmt.Errorf("unexpected status reply: %q", strings.TrimSpace(resp))
	}
	if raw {
		return payload, nil
	}
	var st pipeline.Status
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return "", fmt.Errorf("failed to decode status: %w", err)
	}
	return tui.RenderStatus(st), nil
}

func translateCmd() *cobra.Command {
	var (
		from      string
		to        string
		skipCache bool
		speak     bool
	)

	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text once without the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, strings.Join(args, " "), from, to, skipCache, speak)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source language (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "target language (default from config)")
	cmd.Flags().BoolVar(&skipCache, "skip-cache", false, "ignore saved translations")
	cmd.Flags().BoolVar(&speak, "speak", false, "read the translation aloud")

	return cmd
}

func runTranslate(cmd *cobra.Command, text, from, to string, skipCache, speak bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, comp, err := standalone(ctx, speak)
	if err != nil {
		return err
	}
	defer comp.Close()

	res, err := comp.Orchestrator.Translate(ctx, textRequest(cfg, text, from, to, skipCache))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.TranslatedText)
	if res.FromCache {
		fmt.Fprintf(cmd.ErrOrStderr(), "(from %s cache)\n", res.Tier)
	}

	if !speak {
		return nil
	}
	return comp.Orchestrator.Speak(ctx, res.TranslatedText, res.TargetLang)
}

// standalone builds a pipeline for commands that run without the daemon.
// Asking for speech turns playback on.
func standalone(ctx context.Context, speak bool) (*config.Config, *daemon.Components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if speak {
		if !cfg.SynthesisEnabled() {
			return nil, nil, fmt.Errorf("speech synthesis is disabled, enable it with: voxbridge configure")
		}
		cfg.Playback.Enabled = true
	}
	comp, err := daemon.Build(ctx, cfg, daemon.Shared{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, comp, nil
}

// textRequest fills languages missing from the flags with the configured pair.
func textRequest(cfg *config.Config, text, from, to string, skipCache bool) pipeline.TextRequest {
	if from == "" {
		from = cfg.Translation.SourceLanguage
	}
	if to == "" {
		to = cfg.Translation.TargetLanguage
	}
	return pipeline.TextRequest{
		Text:       text,
		SourceLang: language.Normalize(from),
		TargetLang: language.Normalize(to),
		SkipCache:  skipCache,
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Configure voxbridge through an interactive wizard.

This sets up:
- Source and target languages
- Provider API keys (OpenAI, Groq, Gemini)
- Transcription, translation and speech models
- Cache, network and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps()

	return nil
}

func showNextSteps() {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "voxbridge.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if serviceRunning {
		fmt.Println("1. The running daemon picks up the new config automatically")
	} else {
		fmt.Println("1. Start the service: systemctl --user start voxbridge.service")
	}
	fmt.Println("2. Test a translation: voxbridge translate \"good morning\"")
	fmt.Println("3. Bind a hotkey to: voxbridge toggle")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external programs voxbridge needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := deps.CheckAll()
			writeDoctor(cmd.OutOrStdout(), reports)
			if missing := deps.MissingRequired(reports); len(missing) > 0 {
				return fmt.Errorf("missing required programs: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func writeDoctor(w io.Writer, reports []deps.Report) {
	for _, r := range reports {
		mark := tui.StyleSuccess.Render("ok")
		detail := r.Path
		if r.Version != "" {
			detail += " (" + r.Version + ")"
		}
		if !r.Installed {
			mark = tui.StyleWarning.Render("--")
			if r.Required {
				mark = tui.StyleError.Render("!!")
			}
			detail = "not found"
		}
		fmt.Fprintf(w, "%s %-12s %s  %s\n", mark, r.Name, tui.StyleMuted.Render(r.Purpose), detail)
	}
}
