// Package phrases is a built-in phrasebook of emergency sentences, grouped by
// category and written out in the languages most travellers need. Phrases
// missing in a language are translated on demand.
package phrases

import (
	"context"
	"fmt"
	"sort"

	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
)

type Category string

const (
	Pain       Category = "pain"
	Breathing  Category = "breathing"
	Allergies  Category = "allergies"
	Medication Category = "medication"
	General    Category = "general"
)

type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
)

// TierPhrasebook marks results answered from the phrasebook itself.
const TierPhrasebook = "phrasebook"

// fallbackLang is the language every phrase is written in.
const fallbackLang = "en"

type CategoryInfo struct {
	ID    Category
	Label string
}

type Phrase struct {
	ID       string
	Category Category
	Severity Severity
	Order    int
	// Text maps a language code to the phrase in that language.
	Text map[string]string
}

// In returns the phrase written in lang, if the phrasebook has it.
func (p Phrase) In(lang string) (string, bool) {
	s, ok := p.Text[language.Normalize(lang)]
	return s, ok
}

var categories = []CategoryInfo{
	{Pain, "Pain"},
	{Breathing, "Breathing"},
	{Allergies, "Allergies"},
	{Medication, "Medication"},
	{General, "General"},
}

func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

func IsCategory(c Category) bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

// ByCategory lists the phrases of c in display order. An empty category lists
// every phrase.
func ByCategory(c Category) []Phrase {
	var out []Phrase
	for _, p := range book {
		if c == "" || p.Category == c {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return categoryIndex(out[i].Category) < categoryIndex(out[j].Category)
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func categoryIndex(c Category) int {
	for i, info := range categories {
		if info.ID == c {
			return i
		}
	}
	return len(categories)
}

func Lookup(id string) (Phrase, bool) {
	for _, p := range book {
		if p.ID == id {
			return p, true
		}
	}
	return Phrase{}, false
}

// Translator is the part of the pipeline the phrasebook needs.
type Translator interface {
	Translate(ctx context.Context, req pipeline.TextRequest) (pipeline.TextResult, error)
}

// Render gives phrase p in target, as read by someone speaking source. When
// the phrasebook has both sides no remote call is made, so it works offline.
// Otherwise the phrase is translated through the cache.
func Render(ctx context.Context, tr Translator, p Phrase, source, target string) (pipeline.TextResult, error) {
	source, target = language.Normalize(source), language.Normalize(target)
	if !language.IsSupported(target) {
		return pipeline.TextResult{}, fmt.Errorf("phrasebook: unsupported language %q", target)
	}

	original, ok := p.In(source)
	if !ok {
		source = fallbackLang
		original = p.Text[fallbackLang]
	}
	if translated, ok := p.In(target); ok {
		return pipeline.TextResult{
			OriginalText:   original,
			TranslatedText: translated,
			SourceLang:     source,
			TargetLang:     target,
			FromCache:      true,
			Tier:           TierPhrasebook,
		}, nil
	}
	return tr.Translate(ctx, pipeline.TextRequest{Text: original, SourceLang: source, TargetLang: target})
}
