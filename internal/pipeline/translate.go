package pipeline

import (
	"context"
	"log"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/translator"
)

// Translate translates text, answering from the cache when it can.
//
// Invalid requests fail with VALIDATION_ERROR before any other component is
// consulted. On a cache miss while offline the result is OFFLINE; a denied
// rate limit is RATE_LIMIT_EXCEEDED; a translation that still fails after
// retries is TRANSLATION_ERROR with the upstream message.
func (o *Orchestrator) Translate(ctx context.Context, req TextRequest) (TextResult, error) {
	res, err := o.translate(ctx, req)
	if err != nil {
		return TextResult{}, err
	}
	if !res.FromCache && ctx.Err() == nil {
		o.store(ctx, res)
	}
	o.remember(res, false)
	return res, nil
}

// translate does everything Translate does except writing the cache.
func (o *Orchestrator) translate(ctx context.Context, req TextRequest) (TextResult, error) {
	req, err := o.validateText(req)
	if err != nil {
		return TextResult{}, err
	}
	creq := cache.Request{Text: req.Text, SourceLang: req.SourceLang, TargetLang: req.TargetLang}

	if !req.SkipCache {
		if hit, ok := o.cache.Lookup(ctx, creq); ok {
			return TextResult{
				OriginalText:   req.Text,
				TranslatedText: hit.TranslatedText,
				SourceLang:     req.SourceLang,
				TargetLang:     req.TargetLang,
				FromCache:      true,
				Tier:           hit.Tier,
			}, nil
		}
	}

	if !o.online(ctx) {
		return TextResult{}, apperr.New(apperr.Offline, "no saved translation for this phrase and the network is unreachable")
	}

	if err := o.limiter.Acquire(ratelimit.Translation); err != nil {
		return TextResult{}, err
	}

	translated, err := backoff.Do(ctx, o.retry, o.policy, func(ctx context.Context) (string, error) {
		return o.mt.Translate(ctx, translator.Request{Text: req.Text, SourceLang: req.SourceLang, TargetLang: req.TargetLang})
	})
	if err != nil {
		return TextResult{}, stageError(ctx, apperr.Translation, err)
	}

	return TextResult{
		OriginalText:   req.Text,
		TranslatedText: translated,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
	}, nil
}

func (o *Orchestrator) store(ctx context.Context, res TextResult) {
	o.cache.Store(ctx, cache.Request{Text: res.OriginalText, SourceLang: res.SourceLang, TargetLang: res.TargetLang}, res.TranslatedText)
}

// stageError gives a stage failure its stage code unless a more specific one
// already applies.
func stageError(ctx context.Context, stage apperr.Code, err error) error {
	if ctx.Err() != nil || apperr.IsCancelled(err) {
		return apperr.Wrap(apperr.Cancelled, err)
	}
	switch apperr.CodeOf(err) {
	case apperr.Validation, apperr.NoSpeech, apperr.RateLimitExceeded, apperr.Offline,
		apperr.Permission, apperr.Device, stage:
		return err
	}
	log.Printf("Pipeline: %s failed: %v", stage, err)
	return apperr.Wrap(stage, err)
}
