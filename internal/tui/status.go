package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/notify"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
	"github.com/leonardotrapani/voxbridge/internal/recording"
)

func stateStyle(s recording.State) lipgloss.Style {
	switch s {
	case recording.Recording:
		return StyleError
	case recording.Processing, recording.Playing:
		return StyleHighlight
	case recording.Error:
		return StyleWarning
	}
	return StyleSuccess
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", StyleLabel.Render(fmt.Sprintf("%-12s", label)), value)
}

// RenderStatus formats a daemon status snapshot.
func RenderStatus(st pipeline.Status) string {
	var lines []string

	state := stateStyle(st.State).Render(string(st.State))
	if st.State == recording.Recording {
		state += StyleMuted.Render(fmt.Sprintf(" %s", st.Elapsed.Round(100*time.Millisecond)))
	}
	lines = append(lines,
		row("State", state),
		row("Languages", fmt.Sprintf("%s → %s", language.Label(st.SourceLang), language.Label(st.TargetLang))),
	)

	network := StyleSuccess.Render("online")
	if !st.Online {
		network = StyleWarning.Render("offline") + StyleMuted.Render(" (saved translations only)")
	}
	lines = append(lines, row("Network", network), row("Microphone", st.Permission))

	if r := st.LastResult; r != nil {
		source := "fresh"
		if r.FromCache {
			source = "cached"
		}
		lines = append(lines,
			row("Last heard", r.OriginalText),
			row("Translated", StyleHighlight.Render(r.TranslatedText)+StyleMuted.Render(" ("+source+")")),
		)
	}
	if st.LastError != "" {
		lines = append(lines, row("Last error", StyleError.Render(st.LastError)))
		if hint := notify.Hint(st.LastAction, 0); hint != "" {
			lines = append(lines, row("", StyleSubtle.Render(hint)))
		}
	}

	lines = append(lines, "", StyleHeader.Render("Cache"))
	lines = append(lines, renderStatsRows(st.Cache)...)

	if len(st.Limits) > 0 {
		lines = append(lines, "", StyleHeader.Render("Rate limits"))
		for _, l := range st.Limits {
			usage := fmt.Sprintf("%d/%d per %s", l.Requests, l.MaxRequests, l.Window)
			if l.Blocked {
				usage = StyleError.Render(usage + " blocked")
			}
			lines = append(lines, row(string(l.Category), usage))
		}
	}

	return StyleBox.Render(strings.Join(lines, "\n"))
}

func renderStatsRows(s cache.Stats) []string {
	hits := s.MemoryHits + s.PersistentHits + s.RemoteHits
	rate := "-"
	if s.Lookups > 0 {
		rate = fmt.Sprintf("%.0f%%", 100*float64(hits)/float64(s.Lookups))
	}
	out := []string{
		row("Memory", fmt.Sprintf("%d/%d entries", s.MemoryEntries, s.MemoryCapacity)),
		row("Lookups", fmt.Sprintf("%d (hit rate %s)", s.Lookups, rate)),
		row("Hits", fmt.Sprintf("memory %d, saved %d, remote %d", s.MemoryHits, s.PersistentHits, s.RemoteHits)),
	}
	if s.TierErrors > 0 {
		out = append(out, row("Errors", StyleWarning.Render(fmt.Sprint(s.TierErrors))))
	}
	return out
}

// CacheReport is what "cache stats" shows for the on-disk cache.
type CacheReport struct {
	DBPath     string
	Saved      int
	Capacity   int
	RemoteURL  string
	Breaker    string
	MostUsed   []cache.Entry
	MaxPreview int
}

// RenderCacheReport formats the on-disk cache summary.
func RenderCacheReport(r CacheReport) string {
	lines := []string{
		row("Database", r.DBPath),
		row("Saved", fmt.Sprintf("%d/%d translations", r.Saved, r.Capacity)),
	}
	if r.RemoteURL != "" {
		remote := r.RemoteURL
		if r.Breaker != "" && r.Breaker != "closed" {
			remote += StyleWarning.Render(" (" + r.Breaker + ")")
		}
		lines = append(lines, row("Remote", remote))
	}

	if len(r.MostUsed) > 0 {
		lines = append(lines, "", StyleHeader.Render("Most used"))
		max := r.MaxPreview
		if max <= 0 {
			max = 40
		}
		for _, e := range r.MostUsed {
			lines = append(lines, fmt.Sprintf("%s %s → %s %s",
				StyleHighlight.Render(fmt.Sprintf("%4d×", e.UsageCount)),
				truncate(e.SourceText, max),
				truncate(e.TranslatedText, max),
				StyleMuted.Render(fmt.Sprintf("[%s→%s]", e.SourceLang, e.TargetLang)),
			))
		}
	}
	return StyleBox.Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
