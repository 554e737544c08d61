package notify

import (
	"errors"
	"fmt"
	"log"
	"os/exec"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
)

const appName = "Voxbridge"

type Notifier interface {
	Notify(title, body string)
	Error(msg string)
}

// New returns the notifier for a notifications.type value. Unknown kinds
// fall back to Log.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "none":
		return Nop{}
	default:
		return Log{}
	}
}

type Desktop struct{}

func (Desktop) Notify(title, body string) {
	args := []string{"-a", appName, title}
	if body != "" {
		args = append(args, body)
	}
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("Notify: failed to send notification: %v", err)
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", "critical", appName+" Error", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("Notify: failed to send error notification: %v", err)
	}
}

// Log writes notifications to the process log instead of the desktop.
type Log struct{}

func (Log) Notify(title, body string) {
	if body == "" {
		log.Printf("%s: %s", appName, title)
		return
	}
	log.Printf("%s: %s - %s", appName, title, body)
}

func (Log) Error(msg string) {
	log.Printf("%s Error: %s", appName, msg)
}

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) Notify(title, body string) {}
func (Nop) Error(msg string)          {}

// Messenger turns pipeline events into user-facing notifications using a
// resolved message table.
type Messenger struct {
	notifier Notifier
	messages map[MessageType]Message
}

// NewMessenger uses the built-in messages when messages is nil.
func NewMessenger(n Notifier, messages map[MessageType]Message) *Messenger {
	if n == nil {
		n = Nop{}
	}
	if messages == nil {
		messages = Defaults()
	}
	return &Messenger{notifier: n, messages: messages}
}

// Send shows message t. Args fill the body's format verbs.
func (m *Messenger) Send(t MessageType, args ...any) {
	msg, ok := m.messages[t]
	if !ok {
		log.Printf("Notify: no message for type %d", t)
		return
	}
	body := msg.Body
	if len(args) > 0 {
		body = fmt.Sprintf(body, args...)
	}
	if msg.IsError {
		m.notifier.Error(joinLines(msg.Title, body))
		return
	}
	m.notifier.Notify(msg.Title, body)
}

// Failure reports a pipeline error together with what the user can do
// about it. Cancellations are silent.
func (m *Messenger) Failure(err error) {
	if err == nil || apperr.IsCancelled(err) {
		return
	}
	code := apperr.CodeOf(err)
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	if hint := Hint(code.Action(), apperr.RetryAfterOf(err)); hint != "" {
		msg = joinLines(msg, hint)
	}
	m.notifier.Error(msg)
}

func joinLines(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n" + b
}
