package pipeline

import (
	"context"
	"strings"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/language"
)

// Speak reads text aloud in lang. It shares the text_to_speech rate window and
// the retry policy with voice sessions.
func (o *Orchestrator) Speak(ctx context.Context, text, lang string) error {
	if o.tts == nil {
		return apperr.New(apperr.Validation, "speech synthesis is disabled")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.New(apperr.Validation, "nothing to speak")
	}
	if !language.IsSupported(lang) {
		return apperr.Newf(apperr.Validation, "unsupported language %q", lang)
	}
	if !o.online(ctx) {
		return apperr.New(apperr.Offline, "speech synthesis needs a network connection")
	}

	audio, err := o.synthesize(ctx, text, language.Normalize(lang))
	if err != nil {
		return err
	}
	if err := o.player.Play(ctx, audio); err != nil {
		return stageError(ctx, apperr.Device, err)
	}
	return nil
}
