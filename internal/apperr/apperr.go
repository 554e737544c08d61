// Package apperr defines the error taxonomy shared by every stage of the
// translation pipeline. Each failure carries a Code that callers use to
// decide whether to retry, prompt the user, or wait.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Code string

const (
	Validation        Code = "VALIDATION_ERROR"
	Permission        Code = "PERMISSION_ERROR"
	Device            Code = "DEVICE_ERROR"
	RateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	Network           Code = "NETWORK_ERROR"
	Upstream          Code = "UPSTREAM_ERROR"
	Client            Code = "CLIENT_ERROR"
	Offline           Code = "OFFLINE"
	Cancelled         Code = "CANCELLED"
	Translation       Code = "TRANSLATION_ERROR"
	Transcription     Code = "TRANSCRIPTION_ERROR"
	Synthesis         Code = "SYNTHESIS_ERROR"
	NoSpeech          Code = "NO_SPEECH_DETECTED"
	Unknown           Code = "UNKNOWN_ERROR"
)

// Action tells the user what to do about a terminal error.
type Action string

const (
	ActionNone            Action = "none"
	ActionRetry           Action = "retry"
	ActionGrantPermission Action = "grant_permission"
	ActionCheckDevice     Action = "check_device"
	ActionWait            Action = "wait"
	ActionFixInput        Action = "fix_input"
	ActionReconnect       Action = "reconnect"
)

func (c Code) Action() Action {
	switch c {
	case Validation, NoSpeech:
		return ActionFixInput
	case Permission:
		return ActionGrantPermission
	case Device:
		return ActionCheckDevice
	case RateLimitExceeded:
		return ActionWait
	case Offline:
		return ActionReconnect
	case Cancelled:
		return ActionNone
	default:
		return ActionRetry
	}
}

// Error is a classified failure. Status is the HTTP-like status reported by
// an upstream service, zero when there was none.
type Error struct {
	Code       Code
	Message    string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return string(Unknown)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under code. The message defaults to the message of the
// innermost *Error in err, so the upstream text survives re-classification.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	out := &Error{Code: code, Err: err}
	var inner *Error
	if errors.As(err, &inner) {
		out.Message = inner.Message
		out.Status = inner.Status
		out.RetryAfter = inner.RetryAfter
	}
	if out.Message == "" {
		out.Message = err.Error()
	}
	return out
}

func RateLimited(category string, retryAfter time.Duration) *Error {
	return &Error{
		Code:       RateLimitExceeded,
		Message:    fmt.Sprintf("too many %s requests, retry in %ds", category, Seconds(retryAfter)),
		RetryAfter: retryAfter,
	}
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

func IsCancelled(err error) bool {
	return Is(err, Cancelled)
}

func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

func StatusOf(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Status != 0 {
			return e.Status
		}
		err = e.Err
	}
	return 0
}

// Seconds rounds d up to whole seconds, the unit retry hints are reported in.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
