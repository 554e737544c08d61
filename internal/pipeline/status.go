package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/recording"
)

// Status is a snapshot for status output.
type Status struct {
	State      recording.State `json:"state"`
	SessionID  uuid.UUID       `json:"session_id"`
	Elapsed    time.Duration   `json:"elapsed"`
	SourceLang string          `json:"source_lang"`
	TargetLang string          `json:"target_lang"`
	Online     bool            `json:"online"`
	// Permission is "unknown", "granted" or "denied".
	Permission string             `json:"permission"`
	LastError  string             `json:"last_error,omitempty"`
	LastAction apperr.Action      `json:"last_action,omitempty"`
	LastResult *StatusResult      `json:"last_result,omitempty"`
	Cache      cache.Stats        `json:"cache"`
	Limits     []ratelimit.Status `json:"limits"`
}

type StatusResult struct {
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	FromCache      bool   `json:"from_cache"`
	HasAudio       bool   `json:"has_audio"`
}

func (o *Orchestrator) Status(ctx context.Context) Status {
	snap := o.machine.Snapshot()
	source, target := o.Languages()

	st := Status{
		State:      snap.State,
		SessionID:  snap.SessionID,
		Elapsed:    snap.Elapsed,
		SourceLang: source,
		TargetLang: target,
		Online:     o.online(ctx),
		Permission: "unknown",
		Cache:      o.cache.Stats(),
		Limits:     o.limiter.Snapshot(),
	}
	if snap.Permission.IsSome() {
		st.Permission = "denied"
		if snap.Permission.UnwrapOr(false) {
			st.Permission = "granted"
		}
	}

	o.mu.Lock()
	lastErr := o.lastErr
	if o.last != nil {
		st.LastResult = &StatusResult{
			OriginalText:   o.last.OriginalText,
			TranslatedText: o.last.TranslatedText,
			FromCache:      o.last.FromCache,
			HasAudio:       o.last.Audio != nil,
		}
	}
	o.mu.Unlock()

	if lastErr == nil {
		lastErr = snap.Err
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
		st.LastAction = apperr.CodeOf(lastErr).Action()
	}
	return st
}
