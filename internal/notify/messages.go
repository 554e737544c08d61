package notify

import (
	"fmt"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
)

type MessageType int

const (
	MsgRecordingStarted MessageType = iota
	MsgTranslating
	MsgTranslated
	MsgCancelled
	MsgReplaying
	MsgLanguagesSwapped
	MsgConfigReloaded
	MsgRecordingLimit
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef ties a message type to its config key and default text.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{Type: MsgRecordingStarted, ConfigKey: "recording_started", DefaultTitle: "Listening", DefaultBody: "%s → %s"},
	{Type: MsgTranslating, ConfigKey: "translating", DefaultTitle: "Translating..."},
	{Type: MsgTranslated, ConfigKey: "translated", DefaultTitle: "Translated", DefaultBody: "%s"},
	{Type: MsgCancelled, ConfigKey: "cancelled", DefaultTitle: "Cancelled"},
	{Type: MsgReplaying, ConfigKey: "replaying", DefaultTitle: "Replaying", DefaultBody: "%s"},
	{Type: MsgLanguagesSwapped, ConfigKey: "languages_swapped", DefaultTitle: "Languages swapped", DefaultBody: "%s → %s"},
	{Type: MsgConfigReloaded, ConfigKey: "config_reloaded", DefaultTitle: "Config Reloaded"},
	{Type: MsgRecordingLimit, ConfigKey: "recording_limit", DefaultTitle: "Recording limit reached", DefaultBody: "Stopped after %s"},
}

// Defaults returns the built-in message table.
func Defaults() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		out[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return out
}

// Hint is the one-line suggestion shown under an error.
func Hint(a apperr.Action, retryAfter time.Duration) string {
	switch a {
	case apperr.ActionGrantPermission:
		return "Allow microphone access and try again."
	case apperr.ActionCheckDevice:
		return "Check that a microphone is connected and PipeWire is running."
	case apperr.ActionWait:
		if retryAfter > 0 {
			return fmt.Sprintf("Try again in %ds.", apperr.Seconds(retryAfter))
		}
		return "Try again in a moment."
	case apperr.ActionFixInput:
		return "Check your input and try again."
	case apperr.ActionReconnect:
		return "Reconnect to the internet. Cached translations still work offline."
	case apperr.ActionRetry:
		return "Try again."
	default:
		return ""
	}
}
