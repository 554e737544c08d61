package recording

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
)

type State string

const (
	Idle       State = "idle"
	Recording  State = "recording"
	Processing State = "processing"
	Playing    State = "playing"
	Error      State = "error"
)

// ErrNotIdle is returned when a recording is requested while a session is
// already live. The machine is left untouched.
var ErrNotIdle = errors.New("recording: a session is already active")

// Utterance is one finished recording.
type Utterance struct {
	SessionID uuid.UUID
	Audio     []byte
	Duration  time.Duration
	Encoding  Encoding
}

type Transition struct {
	From      State
	To        State
	SessionID uuid.UUID
	Err       error
}

type MachineConfig struct {
	Encoding Encoding
	// MaxDuration stops a recording automatically, through the same path as
	// StopRecording.
	MaxDuration time.Duration
	// TickInterval is how often elapsed time is updated.
	TickInterval time.Duration
	// MaxAudioBytes also stops the recording when reached.
	MaxAudioBytes int
}

func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		Encoding:      DefaultConfig().Encoding(),
		MaxDuration:   30 * time.Second,
		TickInterval:  100 * time.Millisecond,
		MaxAudioBytes: 10 << 20,
	}
}

// Snapshot is a consistent view of the machine.
type Snapshot struct {
	State      State
	SessionID  uuid.UUID
	StartedAt  time.Time
	Elapsed    time.Duration
	Permission fn.Option[bool]
	Err        error
}

// Machine owns the microphone and the lifecycle of one voice session:
//
//	idle -> recording -> processing -> playing -> idle
//	recording|processing -> idle   (Cancel)
//	processing -> idle             (Finish without playback)
//	any -> error -> idle           (Fail, Recover)
//
// Operations outside this table do nothing.
type Machine struct {
	device Device
	clock  clock.Clock
	cfg    MachineConfig

	mu         sync.Mutex
	state      State
	permission fn.Option[bool]
	lastErr    error
	current    uuid.UUID
	sess       *session

	// starting is set while StartRecording talks to the device with the lock
	// released. abortStart records a Cancel or Fail that arrived meanwhile.
	starting   bool
	abortStart bool

	onTransition []func(Transition)
	onAutoStop   func(Utterance)
}

type session struct {
	id        uuid.UUID
	startedAt time.Time
	elapsed   time.Duration
	stream    Stream
	ticker    clock.Timer

	closing atomic.Bool
	bufMu   sync.Mutex
	buf     bytes.Buffer
	done    chan struct{}
}

func NewMachine(device Device, c clock.Clock, cfg MachineConfig) *Machine {
	def := DefaultMachineConfig()
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = def.MaxAudioBytes
	}
	if cfg.Encoding.Format == "" {
		cfg.Encoding = def.Encoding
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Machine{
		device:     device,
		clock:      c,
		cfg:        cfg,
		state:      Idle,
		permission: fn.None[bool](),
	}
}

// OnTransition registers fn for every state change. Callbacks run after the
// machine's lock is released, in registration order. Register before use.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = append(m.onTransition, fn)
}

// OnAutoStop receives utterances produced by the duration or size guard.
func (m *Machine) OnAutoStop(fn func(Utterance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAutoStop = fn
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Permission is None until access has been requested.
func (m *Machine) Permission() fn.Option[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permission
}

func (m *Machine) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return 0
	}
	return m.sess.elapsed
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:      m.state,
		SessionID:  m.current,
		Permission: m.permission,
		Err:        m.lastErr,
	}
	if m.sess != nil {
		s.StartedAt = m.sess.startedAt
		s.Elapsed = m.sess.elapsed
	}
	return s
}

// IsCurrent reports whether id is the session still being processed or
// played. Results for any other session are stale.
func (m *Machine) IsCurrent(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == id && (m.state == Processing || m.state == Playing)
}

// RequestPermission asks for microphone access once. Later calls return the
// remembered answer without asking again; ResetPermission forgets it.
// The device is asked without holding the machine lock.
func (m *Machine) RequestPermission(ctx context.Context) (bool, error) {
	m.mu.Lock()
	granted, known := m.knownPermission()
	m.mu.Unlock()
	if known {
		if !granted {
			return false, apperr.New(apperr.Permission, "microphone access was denied, re-enable it and retry")
		}
		return true, nil
	}

	err := m.device.RequestAccess(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.permission = fn.Some(true)
		return true, nil
	}

	classified := classify(err)
	if apperr.CodeOf(classified) == apperr.Permission {
		m.permission = fn.Some(false)
	}
	log.Printf("Recording: microphone access check failed: %v", err)
	return false, classified
}

func (m *Machine) knownPermission() (granted, known bool) {
	if m.permission.IsNone() {
		return false, false
	}
	return m.permission.UnwrapOr(false), true
}

// ResetPermission is the explicit user action that allows asking again.
func (m *Machine) ResetPermission() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = fn.None[bool]()
}

// StartRecording opens the microphone and starts a session. It returns
// ErrNotIdle without side effects unless the machine is idle and no other
// start is in progress. A permission or device failure moves the machine to
// error. The device is asked and opened with the lock released, so State,
// Snapshot and Cancel stay responsive; a Cancel in that window closes the
// stream and the start returns CANCELLED.
func (m *Machine) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Idle || m.starting {
		m.mu.Unlock()
		return ErrNotIdle
	}
	m.starting = true
	m.abortStart = false
	m.mu.Unlock()

	if _, err := m.RequestPermission(ctx); err != nil {
		return m.failStart(err)
	}

	stream, err := m.device.Open(ctx)
	if err != nil {
		classified := classify(err)
		if apperr.CodeOf(classified) == apperr.Permission {
			m.mu.Lock()
			m.permission = fn.Some(false)
			m.mu.Unlock()
		}
		return m.failStart(classified)
	}

	m.mu.Lock()
	if m.abortStart || m.state != Idle {
		m.starting = false
		m.mu.Unlock()
		stream.Close()
		log.Printf("Recording: start abandoned while opening the microphone")
		return apperr.New(apperr.Cancelled, "recording was cancelled before it started")
	}
	m.starting = false

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	sess := &session{
		id:        id,
		startedAt: m.clock.Now(),
		stream:    stream,
		done:      make(chan struct{}),
	}
	m.sess = sess
	m.current = id
	m.lastErr = nil

	go m.collect(sess)
	sess.ticker = m.clock.Every(m.cfg.TickInterval, func(now time.Time) {
		m.tick(sess.id, now)
	})

	ts := m.setLocked(Recording, nil)
	m.mu.Unlock()
	m.emit(ts)

	log.Printf("Recording: session %s started", id)
	return nil
}

// failStart ends an unsuccessful start. Unless the start was abandoned, the
// machine moves to error.
func (m *Machine) failStart(err error) error {
	m.mu.Lock()
	m.starting = false
	if m.abortStart || m.state != Idle {
		m.mu.Unlock()
		return apperr.New(apperr.Cancelled, "recording was cancelled before it started")
	}
	ts := m.setLocked(Error, err)
	m.mu.Unlock()
	m.emit(ts)
	return err
}

// StopRecording finalizes the live recording into an Utterance, releases the
// microphone and moves to processing. Outside of recording it returns
// (nil, nil).
func (m *Machine) StopRecording() (*Utterance, error) {
	m.mu.Lock()
	if m.state != Recording {
		m.mu.Unlock()
		return nil, nil
	}
	sess := m.detachLocked()
	ts := m.setLocked(Processing, nil)
	m.mu.Unlock()
	m.emit(ts)

	utt := m.finalize(sess)
	return &utt, nil
}

// Cancel abandons the session from recording or processing and returns to
// idle without an error. It reports whether anything was cancelled.
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	var sess *session
	switch m.state {
	case Recording:
		sess = m.detachLocked()
	case Processing:
	case Idle:
		if m.starting && !m.abortStart {
			m.abortStart = true
			m.mu.Unlock()
			log.Printf("Recording: start cancelled")
			return true
		}
		m.mu.Unlock()
		return false
	default:
		m.mu.Unlock()
		return false
	}
	ts := m.setLocked(Idle, nil)
	m.current = uuid.Nil
	m.mu.Unlock()

	if sess != nil {
		sess.stream.Close()
		<-sess.done
	}
	m.emit(ts)
	log.Printf("Recording: session cancelled")
	return true
}

// BeginPlayback moves processing to playing.
func (m *Machine) BeginPlayback() bool {
	return m.move(uuid.Nil, Playing, Processing)
}

// Finish ends a processed or played session.
func (m *Machine) Finish() bool {
	return m.move(uuid.Nil, Idle, Processing, Playing)
}

// BeginPlaybackFor is BeginPlayback guarded on id still being the current
// session, so late work from a cancelled session cannot move a newer one.
func (m *Machine) BeginPlaybackFor(id uuid.UUID) bool {
	return m.move(id, Playing, Processing)
}

func (m *Machine) FinishSession(id uuid.UUID) bool {
	return m.move(id, Idle, Processing, Playing)
}

// FailSession fails the machine only while id is being processed or played.
func (m *Machine) FailSession(id uuid.UUID, err error) bool {
	if err == nil {
		err = apperr.New(apperr.Unknown, "unspecified failure")
	}
	m.mu.Lock()
	if m.current != id || (m.state != Processing && m.state != Playing) {
		m.mu.Unlock()
		return false
	}
	ts := m.setLocked(Error, err)
	m.mu.Unlock()
	m.emit(ts)
	return true
}

// Recover is the only way out of error.
func (m *Machine) Recover() bool {
	m.mu.Lock()
	if m.state != Error {
		m.mu.Unlock()
		return false
	}
	ts := m.setLocked(Idle, nil)
	m.lastErr = nil
	m.current = uuid.Nil
	m.mu.Unlock()
	m.emit(ts)
	return true
}

// Fail moves any state to error, releasing the microphone if it is held.
func (m *Machine) Fail(err error) {
	if err == nil {
		err = apperr.New(apperr.Unknown, "unspecified failure")
	}
	m.mu.Lock()
	if m.starting {
		m.abortStart = true
	}
	sess := m.detachLocked()
	ts := m.setLocked(Error, err)
	m.mu.Unlock()

	if sess != nil {
		sess.stream.Close()
		<-sess.done
	}
	m.emit(ts)
}

func (m *Machine) move(id uuid.UUID, to State, from ...State) bool {
	m.mu.Lock()
	if id != uuid.Nil && id != m.current {
		m.mu.Unlock()
		return false
	}
	allowed := false
	for _, f := range from {
		if m.state == f {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return false
	}
	ts := m.setLocked(to, nil)
	if to == Idle {
		m.current = uuid.Nil
	}
	m.mu.Unlock()
	m.emit(ts)
	return true
}

// setLocked changes state and returns the transition to emit once unlocked.
func (m *Machine) setLocked(to State, err error) []Transition {
	from := m.state
	m.state = to
	if to == Error {
		m.lastErr = err
	}
	if from == to && err == nil {
		return nil
	}
	return []Transition{{From: from, To: to, SessionID: m.current, Err: err}}
}

func (m *Machine) emit(ts []Transition) {
	if len(ts) == 0 {
		return
	}
	m.mu.Lock()
	fns := append([]func(Transition){}, m.onTransition...)
	m.mu.Unlock()

	for _, t := range ts {
		for _, fn := range fns {
			fn(t)
		}
	}
}

// detachLocked stops the ticker and hands the live session to the caller,
// who must close its stream.
func (m *Machine) detachLocked() *session {
	sess := m.sess
	if sess == nil {
		return nil
	}
	m.sess = nil
	sess.ticker.Stop()
	sess.closing.Store(true)
	return sess
}

func (m *Machine) finalize(sess *session) Utterance {
	duration := m.clock.Now().Sub(sess.startedAt)
	sess.stream.Close()
	<-sess.done

	sess.bufMu.Lock()
	audio := make([]byte, sess.buf.Len())
	copy(audio, sess.buf.Bytes())
	sess.bufMu.Unlock()

	log.Printf("Recording: session %s stopped after %v (%d bytes)", sess.id, duration.Round(time.Millisecond), len(audio))
	return Utterance{SessionID: sess.id, Audio: audio, Duration: duration, Encoding: m.cfg.Encoding}
}

func (m *Machine) tick(id uuid.UUID, now time.Time) {
	m.mu.Lock()
	if m.sess == nil || m.sess.id != id || m.state != Recording {
		m.mu.Unlock()
		return
	}
	m.sess.elapsed = now.Sub(m.sess.startedAt)
	if m.sess.elapsed < m.cfg.MaxDuration {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	log.Printf("Recording: maximum duration %v reached", m.cfg.MaxDuration)
	m.autoStop(id)
}

func (m *Machine) autoStop(id uuid.UUID) {
	m.mu.Lock()
	if m.sess == nil || m.sess.id != id || m.state != Recording {
		m.mu.Unlock()
		return
	}
	sess := m.detachLocked()
	ts := m.setLocked(Processing, nil)
	onAutoStop := m.onAutoStop
	m.mu.Unlock()
	m.emit(ts)

	utt := m.finalize(sess)
	if onAutoStop != nil {
		onAutoStop(utt)
	}
}

// collect buffers frames until the stream ends. A stream failure we did not
// cause fails the session.
func (m *Machine) collect(sess *session) {
	frames, errs := sess.stream.Frames(), sess.stream.Errors()
	full := false

	for frame := range frames {
		if full {
			continue
		}
		sess.bufMu.Lock()
		if sess.buf.Len()+len(frame.Data) > m.cfg.MaxAudioBytes {
			full = true
		} else {
			sess.buf.Write(frame.Data)
		}
		sess.bufMu.Unlock()

		if full && !sess.closing.Load() {
			log.Printf("Recording: audio size limit of %d bytes reached", m.cfg.MaxAudioBytes)
			go m.autoStop(sess.id)
		}
	}

	var streamErr error
	for err := range errs {
		streamErr = err
	}
	close(sess.done)

	if sess.closing.Load() {
		return
	}
	if streamErr == nil {
		streamErr = &DeviceError{Kind: Failed, Err: errors.New("input stream ended unexpectedly")}
	}
	m.failSession(sess.id, streamErr)
}

func (m *Machine) failSession(id uuid.UUID, err error) {
	m.mu.Lock()
	if m.sess == nil || m.sess.id != id {
		m.mu.Unlock()
		return
	}
	sess := m.detachLocked()
	classified := classify(err)
	ts := m.setLocked(Error, classified)
	m.mu.Unlock()

	sess.stream.Close()
	m.emit(ts)
	log.Printf("Recording: session %s failed: %v", id, classified)
}
