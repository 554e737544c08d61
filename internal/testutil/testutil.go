package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/recording"
	"github.com/leonardotrapani/voxbridge/internal/synthesizer"
	"github.com/leonardotrapani/voxbridge/internal/transcriber"
	"github.com/leonardotrapani/voxbridge/internal/translator"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	c := config.DefaultConfig()
	c.Providers["openai"] = config.ProviderConfig{APIKey: "test-api-key"}
	c.Translation.SourceLanguage = "fr"
	c.Translation.TargetLanguage = "en"
	c.Notifications.Type = "log"
	c.Network.CheckURL = ""
	return c
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// MockAudioFrame creates a test audio frame
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}

	return recording.AudioFrame{
		Data:      data,
		Timestamp: time.Now(),
	}
}

// MockDevice implements recording.Device. Every Open returns a new stream
// that delivers Frames and then stays open until closed.
type MockDevice struct {
	AccessError error
	OpenError   error
	Frames      []recording.AudioFrame

	mu      sync.Mutex
	streams []*MockStream
}

func NewMockDevice() *MockDevice {
	return &MockDevice{Frames: []recording.AudioFrame{MockAudioFrame(nil)}}
}

func (d *MockDevice) RequestAccess(ctx context.Context) error {
	return d.AccessError
}

func (d *MockDevice) Open(ctx context.Context) (recording.Stream, error) {
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	s := &MockStream{
		frames: make(chan recording.AudioFrame, len(d.Frames)+1),
		errs:   make(chan error, 1),
	}
	for _, f := range d.Frames {
		s.frames <- f
	}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Opened returns how many streams were opened.
func (d *MockDevice) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// LastStream is the most recently opened stream, nil if none.
func (d *MockDevice) LastStream() *MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type MockStream struct {
	frames chan recording.AudioFrame
	errs   chan error

	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (s *MockStream) Frames() <-chan recording.AudioFrame { return s.frames }
func (s *MockStream) Errors() <-chan error                { return s.errs }

func (s *MockStream) Close() error {
	s.end(nil)
	return nil
}

// Fail ends the stream with err, as a vanished device would.
func (s *MockStream) Fail(err error) {
	s.end(err)
}

func (s *MockStream) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if err != nil {
			s.errs <- err
		}
		close(s.frames)
		close(s.errs)
	})
}

func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// calls is a goroutine-safe call recorder shared by the mocks below.
type calls[T any] struct {
	mu   sync.Mutex
	reqs []T
}

func (c *calls[T]) add(req T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return len(c.reqs)
}

func (c *calls[T]) all() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.reqs))
	copy(out, c.reqs)
	return out
}

// MockTranscriber implements transcriber.Transcriber. Errors are returned in
// order, one per call, before Transcription is.
type MockTranscriber struct {
	Transcription  string
	Errors         []error
	TranscribeFunc func(ctx context.Context, req transcriber.Request) (string, error)

	calls calls[transcriber.Request]
}

func NewMockTranscriber(transcription string) *MockTranscriber {
	return &MockTranscriber{Transcription: transcription}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, req transcriber.Request) (string, error) {
	n := m.calls.add(req)
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	if n <= len(m.Errors) && m.Errors[n-1] != nil {
		return "", m.Errors[n-1]
	}
	return m.Transcription, nil
}

func (m *MockTranscriber) Calls() []transcriber.Request {
	return m.calls.all()
}

// MockTranslator implements translator.Translator. Without TranslateFunc it
// answers from Translations, or echoes the text tagged with the target
// language.
type MockTranslator struct {
	Translations  map[string]string
	Errors        []error
	TranslateFunc func(ctx context.Context, req translator.Request) (string, error)

	calls calls[translator.Request]
}

func NewMockTranslator(translations map[string]string) *MockTranslator {
	return &MockTranslator{Translations: translations}
}

func (m *MockTranslator) Translate(ctx context.Context, req translator.Request) (string, error) {
	n := m.calls.add(req)
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}
	if n <= len(m.Errors) && m.Errors[n-1] != nil {
		return "", m.Errors[n-1]
	}
	if out, ok := m.Translations[req.Text]; ok {
		return out, nil
	}
	return "[" + req.TargetLang + "] " + req.Text, nil
}

func (m *MockTranslator) Calls() []translator.Request {
	return m.calls.all()
}

// MockSynthesizer implements synthesizer.Synthesizer.
type MockSynthesizer struct {
	Error          error
	SynthesizeFunc func(ctx context.Context, req synthesizer.Request) (synthesizer.Audio, error)

	calls calls[synthesizer.Request]
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, req synthesizer.Request) (synthesizer.Audio, error) {
	m.calls.add(req)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	if m.Error != nil {
		return synthesizer.Audio{}, m.Error
	}
	return synthesizer.Audio{Data: []byte("RIFF" + req.Text), Format: "wav"}, nil
}

func (m *MockSynthesizer) Calls() []synthesizer.Request {
	return m.calls.all()
}

// MockPlayer implements playback.Player. With Block set, Play waits for the
// channel to close or ctx to end.
type MockPlayer struct {
	Error error
	Block chan struct{}

	calls calls[synthesizer.Audio]
}

func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

func (m *MockPlayer) Play(ctx context.Context, audio synthesizer.Audio) error {
	m.calls.add(audio)
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Error
}

func (m *MockPlayer) Played() []synthesizer.Audio {
	return m.calls.all()
}

// MockInjector implements injection.Injector for testing
type MockInjector struct {
	InjectError error

	calls calls[string]
}

func NewMockInjector() *MockInjector {
	return &MockInjector{}
}

func (m *MockInjector) Inject(ctx context.Context, text string) error {
	if m.InjectError != nil {
		return m.InjectError
	}
	m.calls.add(text)
	return nil
}

func (m *MockInjector) GetInjectedTexts() []string {
	return m.calls.all()
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}
