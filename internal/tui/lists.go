package tui

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/voxbridge/internal/conversation"
	"github.com/leonardotrapani/voxbridge/internal/phrases"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
)

// RenderHistory formats recent translations, newest first.
func RenderHistory(entries []pipeline.HistoryEntry) string {
	if len(entries) == 0 {
		return StyleMuted.Render("No translations yet.")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		kind := "text "
		if e.Voice {
			kind = "voice"
		}
		source := ""
		if e.FromCache {
			source = StyleMuted.Render(" (cached)")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s → %s%s",
			StyleMuted.Render(e.At.Local().Format("Jan 02 15:04")),
			StyleLabel.Render(kind),
			truncate(e.OriginalText, 40),
			StyleHighlight.Render(truncate(e.TranslatedText, 40)),
			source+StyleMuted.Render(fmt.Sprintf(" [%s→%s]", e.SourceLang, e.TargetLang)),
		))
	}
	return StyleBox.Render(strings.Join(lines, "\n"))
}

func severityStyle(s phrases.Severity) string {
	switch s {
	case phrases.Critical:
		return StyleError.Render("!!")
	case phrases.High:
		return StyleWarning.Render("! ")
	}
	return "  "
}

// RenderPhrases lists phrasebook entries by category, written in lang.
func RenderPhrases(list []phrases.Phrase, lang string) string {
	if len(list) == 0 {
		return StyleMuted.Render("No phrases in this category.")
	}
	var lines []string
	var current phrases.Category
	for _, p := range list {
		if p.Category != current {
			if current != "" {
				lines = append(lines, "")
			}
			current = p.Category
			lines = append(lines, StyleHeader.Render(categoryLabel(current)))
		}
		text, ok := p.In(lang)
		if !ok {
			text, _ = p.In("en")
		}
		lines = append(lines, fmt.Sprintf("%s %-20s %s", severityStyle(p.Severity), p.ID, text))
	}
	return StyleBox.Render(strings.Join(lines, "\n"))
}

func categoryLabel(c phrases.Category) string {
	for _, info := range phrases.Categories() {
		if info.ID == c {
			return info.Label
		}
	}
	return string(c)
}

// RenderMessage formats one conversation turn.
func RenderMessage(m conversation.Message) string {
	return fmt.Sprintf("%s %s\n  %s %s",
		StyleLabel.Render(string(m.Participant)+":"),
		m.OriginalText,
		StyleMuted.Render("→"),
		StyleHighlight.Render(m.TranslatedText),
	)
}
