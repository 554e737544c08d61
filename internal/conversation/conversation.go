// Package conversation runs a two-person exchange through the pipeline. Each
// participant speaks their own language; every turn is translated for the
// other one and kept in a message log.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
	"github.com/leonardotrapani/voxbridge/internal/language"
	"github.com/leonardotrapani/voxbridge/internal/pipeline"
)

type Participant string

const (
	A Participant = "A"
	B Participant = "B"
)

// Other is the participant listening while p speaks.
func (p Participant) Other() Participant {
	if p == A {
		return B
	}
	return A
}

var ErrNoMessage = errors.New("conversation: no such message")

// Interpreter is the part of the pipeline a conversation drives.
type Interpreter interface {
	Translate(ctx context.Context, req pipeline.TextRequest) (pipeline.TextResult, error)
	Speak(ctx context.Context, text, lang string) error
}

type Message struct {
	ID             uuid.UUID
	Participant    Participant
	OriginalText   string
	TranslatedText string
	OriginalLang   string
	TargetLang     string
	FromCache      bool
	At             time.Time
}

type Session struct {
	interp Interpreter
	clock  clock.Clock

	mu       sync.Mutex
	langs    map[Participant]string
	current  Participant
	messages []Message
}

// New starts a conversation where A speaks langA and B speaks langB. A talks
// first.
func New(interp Interpreter, langA, langB string, c clock.Clock) (*Session, error) {
	for _, l := range []string{langA, langB} {
		if !language.IsSupported(l) {
			return nil, apperr.Newf(apperr.Validation, "unsupported language %q", l)
		}
	}
	langA, langB = language.Normalize(langA), language.Normalize(langB)
	if langA == langB {
		return nil, apperr.Newf(apperr.Validation, "both participants speak %q", langA)
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Session{
		interp:  interp,
		clock:   c,
		langs:   map[Participant]string{A: langA, B: langB},
		current: A,
	}, nil
}

// Current is the participant whose turn it is.
func (s *Session) Current() Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent hands the next turn to p.
func (s *Session) SetCurrent(p Participant) error {
	if p != A && p != B {
		return fmt.Errorf("conversation: unknown participant %q", p)
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}

// Languages returns what p speaks and what the other participant hears.
func (s *Session) Languages(p Participant) (speaker, listener string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langs[p], s.langs[p.Other()]
}

// Say translates text spoken by the current participant for the other one,
// logs it and passes the turn. A failed turn is not logged and keeps the
// same speaker.
func (s *Session) Say(ctx context.Context, text string) (Message, error) {
	s.mu.Lock()
	speaker := s.current
	from, to := s.langs[speaker], s.langs[speaker.Other()]
	s.mu.Unlock()

	res, err := s.interp.Translate(ctx, pipeline.TextRequest{Text: text, SourceLang: from, TargetLang: to})
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:             uuid.New(),
		Participant:    speaker,
		OriginalText:   res.OriginalText,
		TranslatedText: res.TranslatedText,
		OriginalLang:   res.SourceLang,
		TargetLang:     res.TargetLang,
		FromCache:      res.FromCache,
		At:             s.clock.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if s.current == speaker {
		s.current = speaker.Other()
	}
	s.mu.Unlock()

	log.Printf("Conversation: %s said %d chars (%s -> %s)", speaker, len(msg.OriginalText), from, to)
	return msg, nil
}

// Play reads a logged message aloud in the listener's language.
func (s *Session) Play(ctx context.Context, id uuid.UUID) error {
	msg, ok := s.find(id)
	if !ok {
		return ErrNoMessage
	}
	return s.interp.Speak(ctx, msg.TranslatedText, msg.TargetLang)
}

func (s *Session) find(id uuid.UUID) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns the log, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Last is the most recent message.
func (s *Session) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Clear empties the log and gives the first turn back to A.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.current = A
}
