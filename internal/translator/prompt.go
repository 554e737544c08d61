package translator

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/language"
)

// BuildSystemPrompt generates the system prompt for a translation
func BuildSystemPrompt(sourceLang, targetLang string, keywords []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a professional interpreter. Translate the user's message from %s to %s.\n\n",
		language.Label(sourceLang), language.Label(targetLang))

	b.WriteString("Rules:\n")
	b.WriteString("- Preserve the meaning, tone and register of the original\n")
	b.WriteString("- Keep numbers, names and units exactly as given\n")
	b.WriteString("- The text is spoken language from a transcript; do not correct the speaker\n")
	b.WriteString("- Output ONLY the translation, with no quotes, notes or explanations\n")

	if len(keywords) > 0 {
		fmt.Fprintf(&b, "\nKeep these terms untranslated and spelled exactly: %s\n", strings.Join(keywords, ", "))
	}

	return b.String()
}

// BuildUserPrompt generates the user prompt with the text to translate
func BuildUserPrompt(text string, customPrompt string) string {
	if customPrompt != "" {
		return fmt.Sprintf("%s\n\nText to translate:\n%s", customPrompt, text)
	}
	return text
}

// cleanOutput strips whitespace and a single pair of wrapping quotes that
// models sometimes add.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"«", "»"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			inner := s[len(q[0]) : len(s)-len(q[1])]
			if !strings.Contains(inner, q[0]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

// emptyResponse is an unusable 200 from the model, retried like a bad
// gateway.
func emptyResponse(msg string) error {
	return &apperr.Error{Code: apperr.Upstream, Message: msg, Status: http.StatusBadGateway}
}
