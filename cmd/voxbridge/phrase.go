package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/phrases"
	"github.com/leonardotrapani/voxbridge/internal/tui"
)

func phraseCmd() *cobra.Command {
	var (
		category string
		from     string
		to       string
		speak    bool
	)

	cmd := &cobra.Command{
		Use:   "phrase [id]",
		Short: "List emergency phrases, or say one in the target language",
		Long: `Without an id, list the built-in emergency phrases, optionally for one
category (pain, breathing, allergies, medication, general).

With an id, print the phrase in the target language. Phrases the phrasebook
already has in both languages work offline; others are translated once and
then answered from the cache.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && !phrases.IsCategory(phrases.Category(category)) {
				return fmt.Errorf("unknown category %q", category)
			}
			if len(args) == 0 {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				lang := from
				if lang == "" {
					lang = cfg.Translation.SourceLanguage
				}
				fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPhrases(phrases.ByCategory(phrases.Category(category)), lang))
				return nil
			}
			return runPhrase(cmd, args[0], from, to, speak)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list phrases of this category")
	cmd.Flags().StringVar(&from, "from", "", "language you read (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "language to say it in (default from config)")
	cmd.Flags().BoolVar(&speak, "speak", false, "read the phrase aloud")

	return cmd
}

func runPhrase(cmd *cobra.Command, id, from, to string, speak bool) error {
	p, ok := phrases.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown phrase %q, list them with: voxbridge phrase", id)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, comp, err := standalone(ctx, speak)
	if err != nil {
		return err
	}
	defer comp.Close()

	req := textRequest(cfg, "", from, to, false)
	res, err := phrases.Render(ctx, comp.Orchestrator, p, req.SourceLang, req.TargetLang)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.TranslatedText)
	fmt.Fprintln(cmd.ErrOrStderr(), tui.StyleMuted.Render(res.OriginalText))

	if !speak {
		return nil
	}
	return comp.Orchestrator.Speak(ctx, res.TranslatedText, res.TargetLang)
}
