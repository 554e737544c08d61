package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/ratelimit"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
	"github.com/leonardotrapani/voxbridge/internal/transcriber"
)

var errSessionDropped = errors.New("session was cancelled")

// StartRecording begins a voice session. A machine left in error by the
// previous session is recovered first; starting again is the user's
// acknowledgement.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if o.machine.State() == recording.Error {
		o.machine.Recover()
	}
	if err := o.machine.StartRecording(ctx); err != nil {
		if !errors.Is(err, recording.ErrNotIdle) && !apperr.IsCancelled(err) {
			o.setLastErr(err)
			o.emitError(err)
		}
		return err
	}
	o.setLastErr(nil)
	return nil
}

// StopAndTranslate stops the live recording and runs it through the
// pipeline. Without a live recording it does nothing and returns nil, nil.
func (o *Orchestrator) StopAndTranslate(ctx context.Context) (*Result, error) {
	utt, err := o.machine.StopRecording()
	if err != nil || utt == nil {
		return nil, err
	}
	return o.Process(ctx, *utt)
}

// Process turns a stopped utterance into a result: transcribe, translate,
// synthesize, play. It is all or nothing; on failure nothing is cached or
// returned and the machine moves to error. If the session is cancelled while
// in flight the result is dropped and a CANCELLED error returned.
func (o *Orchestrator) Process(ctx context.Context, utt recording.Utterance) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.inflight, o.inflightID = cancel, utt.SessionID
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		if o.inflightID == utt.SessionID {
			o.inflight, o.inflightID = nil, uuid.Nil
		}
		o.mu.Unlock()
	}()

	res, err := o.run(ctx, utt)
	if err != nil {
		if errors.Is(err, errSessionDropped) || apperr.IsCancelled(err) || o.dropped(ctx, utt.SessionID) {
			if o.machine.IsCurrent(utt.SessionID) {
				o.machine.Cancel()
			}
			log.Printf("Pipeline: session %s dropped", utt.SessionID)
			return nil, apperr.Wrap(apperr.Cancelled, errSessionDropped)
		}
		if o.machine.FailSession(utt.SessionID, err) {
			o.setLastErr(err)
			o.emitError(err)
		}
		return nil, err
	}

	if !o.machine.FinishSession(utt.SessionID) {
		return nil, apperr.Wrap(apperr.Cancelled, errSessionDropped)
	}

	o.mu.Lock()
	o.last = res
	o.lastErr = nil
	o.mu.Unlock()
	o.remember(res.TextResult, true)
	o.emitResult(*res)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, utt recording.Utterance) (*Result, error) {
	if len(utt.Audio) == 0 {
		return nil, apperr.New(apperr.NoSpeech, "nothing was recorded")
	}
	if len(utt.Audio) > o.maxAudio {
		return nil, apperr.Newf(apperr.Validation, "recording is %d bytes, the limit is %d", len(utt.Audio), o.maxAudio)
	}
	source, target := o.Languages()

	if !o.online(ctx) {
		return nil, apperr.New(apperr.Offline, "speech recognition needs a network connection")
	}

	text, err := o.transcribe(ctx, utt, source)
	if err != nil {
		return nil, err
	}
	log.Printf("Pipeline: session %s transcribed %d chars", utt.SessionID, len(text))
	if o.dropped(ctx, utt.SessionID) {
		return nil, errSessionDropped
	}

	tr, err := o.translate(ctx, TextRequest{Text: text, SourceLang: source, TargetLang: target})
	if err != nil {
		return nil, err
	}
	if o.dropped(ctx, utt.SessionID) {
		return nil, errSessionDropped
	}

	res := &Result{TextResult: tr, SessionID: utt.SessionID}
	if o.tts != nil {
		audio, err := o.synthesize(ctx, tr.TranslatedText, target)
		if err != nil {
			return nil, err
		}
		res.Audio = &audio
	}

	if res.Audio != nil {
		if !o.machine.BeginPlaybackFor(utt.SessionID) {
			return nil, errSessionDropped
		}
		if err := o.player.Play(ctx, *res.Audio); err != nil {
			return nil, stageError(ctx, apperr.Device, err)
		}
	}

	if !tr.FromCache && ctx.Err() == nil {
		o.store(ctx, tr)
	}
	return res, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, utt recording.Utterance, lang string) (string, error) {
	if err := o.limiter.Acquire(ratelimit.SpeechToText); err != nil {
		return "", err
	}
	text, err := backoff.Do(ctx, o.retry, o.policy, func(ctx context.Context) (string, error) {
		return o.stt.Transcribe(ctx, transcriber.Request{Audio: utt.Audio, Encoding: utt.Encoding, Language: lang})
	})
	if err != nil {
		return "", stageError(ctx, apperr.Transcription, err)
	}
	return text, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, text, lang string) (synthesizer.Audio, error) {
	if err := o.limiter.Acquire(ratelimit.TextToSpeech); err != nil {
		return synthesizer.Audio{}, err
	}
	audio, err := backoff.Do(ctx, o.retry, o.policy, func(ctx context.Context) (synthesizer.Audio, error) {
		return o.tts.Synthesize(ctx, synthesizer.Request{Text: text, Language: lang})
	})
	if err != nil {
		return synthesizer.Audio{}, stageError(ctx, apperr.Synthesis, err)
	}
	return audio, nil
}

// dropped reports whether results for session id must be discarded.
func (o *Orchestrator) dropped(ctx context.Context, id uuid.UUID) bool {
	return ctx.Err() != nil || !o.machine.IsCurrent(id)
}

// Cancel abandons the live recording or the session being processed. An
// in-flight remote call is cancelled and its result dropped. Playback cannot
// be cancelled.
func (o *Orchestrator) Cancel() bool {
	if !o.machine.Cancel() {
		return false
	}
	o.mu.Lock()
	cancel := o.inflight
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// Replayable returns the result Replay would play. Like Reset it is refused
// while a session is live; a machine left in error may still replay.
func (o *Orchestrator) Replayable() (Result, error) {
	if !settled(o.machine.State()) {
		return Result{}, ErrBusy
	}
	last, ok := o.LastResult()
	if !ok || last.Audio == nil {
		return Result{}, ErrNothingToReplay
	}
	return last, nil
}

// Replay plays the last synthesized translation again.
func (o *Orchestrator) Replay(ctx context.Context) error {
	last, err := o.Replayable()
	if err != nil {
		return err
	}
	log.Printf("Pipeline: replaying session %s", last.SessionID)
	return o.player.Play(ctx, *last.Audio)
}

func (o *Orchestrator) setLastErr(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}

func (o *Orchestrator) emitResult(r Result) {
	o.mu.Lock()
	fns := append([]func(Result){}, o.onResult...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

func (o *Orchestrator) emitError(err error) {
	o.mu.Lock()
	fns := append([]func(error){}, o.onError...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
