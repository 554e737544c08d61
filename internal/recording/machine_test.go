package recording

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/clock"
)

type fakeStream struct {
	frames chan AudioFrame
	errs   chan error
	once   sync.Once
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		frames: make(chan AudioFrame, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Frames() <-chan AudioFrame { return s.frames }
func (s *fakeStream) Errors() <-chan error      { return s.errs }

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		close(s.frames)
		close(s.errs)
	})
	return nil
}

// fail ends the stream as if the device went away.
func (s *fakeStream) fail(err error) {
	s.once.Do(func() {
		s.errs <- err
		close(s.frames)
		close(s.errs)
	})
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeDevice struct {
	mu        sync.Mutex
	accessErr error
	openErr   error
	requests  int
	streams   []*fakeStream

	// openGate, when set, holds Open until it is closed. opening receives
	// once Open is waiting.
	openGate chan struct{}
	opening  chan struct{}
}

func (d *fakeDevice) RequestAccess(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++
	return d.accessErr
}

func (d *fakeDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	gate, opening := d.openGate, d.opening
	d.mu.Unlock()
	if gate != nil {
		opening <- struct{}{}
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := newFakeStream()
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) last() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[len(d.streams)-1]
}

type machineHarness struct {
	device      *fakeDevice
	clock       *clock.Fake
	machine     *Machine
	mu          sync.Mutex
	transitions []Transition
}

func newMachineHarness(t *testing.T, cfg MachineConfig) *machineHarness {
	t.Helper()
	h := &machineHarness{
		device: &fakeDevice{},
		clock:  clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	h.machine = NewMachine(h.device, h.clock, cfg)
	h.machine.OnTransition(func(tr Transition) {
		h.mu.Lock()
		h.transitions = append(h.transitions, tr)
		h.mu.Unlock()
	})
	return h
}

func (h *machineHarness) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []State
	for _, tr := range h.transitions {
		out = append(out, tr.To)
	}
	return out
}

func (h *machineHarness) send(t *testing.T, data string) {
	t.Helper()
	h.device.last().frames <- AudioFrame{Data: []byte(data)}
}

func TestMachineHappyPath(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()

	require.Equal(t, Idle, h.machine.State())
	require.NoError(t, h.machine.StartRecording(ctx))
	require.Equal(t, Recording, h.machine.State())
	require.True(t, h.machine.Permission().UnwrapOr(false))

	h.send(t, "abc")
	h.send(t, "def")
	h.clock.Advance(1500 * time.Millisecond)

	utt, err := h.machine.StopRecording()
	require.NoError(t, err)
	require.NotNil(t, utt)
	require.Equal(t, "abcdef", string(utt.Audio))
	require.Equal(t, 1500*time.Millisecond, utt.Duration)
	require.Equal(t, DefaultConfig().Encoding(), utt.Encoding)
	require.Equal(t, Processing, h.machine.State())
	require.True(t, h.device.last().isClosed(), "microphone must be released on stop")
	require.True(t, h.machine.IsCurrent(utt.SessionID))

	require.True(t, h.machine.BeginPlayback())
	require.True(t, h.machine.IsCurrent(utt.SessionID))
	require.True(t, h.machine.Finish())
	require.False(t, h.machine.IsCurrent(utt.SessionID))

	require.Equal(t, []State{Recording, Processing, Playing, Idle}, h.states())
}

func TestMachineStartWhileBusy(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()
	require.NoError(t, h.machine.StartRecording(ctx))

	err := h.machine.StartRecording(ctx)
	require.ErrorIs(t, err, ErrNotIdle)
	require.Equal(t, Recording, h.machine.State())
	require.Len(t, h.device.streams, 1)

	_, err = h.machine.StopRecording()
	require.NoError(t, err)
	require.ErrorIs(t, h.machine.StartRecording(ctx), ErrNotIdle)
	require.Equal(t, Processing, h.machine.State())
}

func TestMachineStopOutsideRecording(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})

	utt, err := h.machine.StopRecording()
	require.NoError(t, err)
	require.Nil(t, utt)
	require.Equal(t, Idle, h.machine.State())
	require.Empty(t, h.states())
}

func TestMachinePermissionDenied(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	h.device.accessErr = &DeviceError{Kind: Denied}
	ctx := context.Background()

	err := h.machine.StartRecording(ctx)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Permission))
	require.Equal(t, Error, h.machine.State())
	require.True(t, apperr.Is(h.machine.Err(), apperr.Permission))
	require.Equal(t, false, h.machine.Permission().UnwrapOr(true))

	require.True(t, h.machine.Recover())
	require.Equal(t, Idle, h.machine.State())
	require.NoError(t, h.machine.Err())

	// The denial is remembered; the device is not asked again.
	err = h.machine.StartRecording(ctx)
	require.True(t, apperr.Is(err, apperr.Permission))
	require.Equal(t, 1, h.device.requests)

	h.machine.Recover()
	h.machine.ResetPermission()
	h.device.accessErr = nil
	require.NoError(t, h.machine.StartRecording(ctx))
	require.Equal(t, 2, h.device.requests)
}

func TestMachinePermissionCached(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()

	require.True(t, h.machine.Permission().IsNone())
	granted, err := h.machine.RequestPermission(ctx)
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = h.machine.RequestPermission(ctx)
	require.NoError(t, err)
	require.True(t, granted)
	require.Equal(t, 1, h.device.requests)
}

func TestMachineDeviceErrors(t *testing.T) {
	kinds := []DeviceErrorKind{NoDevice, Busy, Blocked, Failed}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			h := newMachineHarness(t, MachineConfig{})
			h.device.openErr = &DeviceError{Kind: kind}

			err := h.machine.StartRecording(context.Background())
			require.True(t, apperr.Is(err, apperr.Device))
			require.Equal(t, Error, h.machine.State())
			require.True(t, h.machine.Permission().UnwrapOr(false), "device errors are not permission errors")
		})
	}
}

func TestMachineCancel(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()

	require.False(t, h.machine.Cancel(), "nothing to cancel while idle")

	require.NoError(t, h.machine.StartRecording(ctx))
	h.send(t, "discard me")
	require.True(t, h.machine.Cancel())
	require.Equal(t, Idle, h.machine.State())
	require.True(t, h.device.last().isClosed())
	require.Zero(t, h.clock.ActiveTimers())
	require.NoError(t, h.machine.Err())

	require.NoError(t, h.machine.StartRecording(ctx))
	utt, err := h.machine.StopRecording()
	require.NoError(t, err)
	require.True(t, h.machine.Cancel())
	require.Equal(t, Idle, h.machine.State())
	require.False(t, h.machine.IsCurrent(utt.SessionID))

	require.NoError(t, h.machine.StartRecording(ctx))
	_, _ = h.machine.StopRecording()
	h.machine.BeginPlayback()
	require.False(t, h.machine.Cancel(), "playback is not cancellable")
	require.Equal(t, Playing, h.machine.State())
}

func TestMachineIllegalTransitionsAreIgnored(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})

	require.False(t, h.machine.BeginPlayback())
	require.False(t, h.machine.Finish())
	require.False(t, h.machine.Recover())
	require.Equal(t, Idle, h.machine.State())
	require.Empty(t, h.states())

	require.NoError(t, h.machine.StartRecording(context.Background()))
	require.False(t, h.machine.BeginPlayback())
	require.False(t, h.machine.Finish())
	require.False(t, h.machine.Recover())
	require.Equal(t, Recording, h.machine.State())
}

func TestMachineAutoStopAtMaxDuration(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{MaxDuration: 2 * time.Second, TickInterval: 100 * time.Millisecond})

	var got []Utterance
	h.machine.OnAutoStop(func(u Utterance) { got = append(got, u) })

	require.NoError(t, h.machine.StartRecording(context.Background()))
	h.send(t, "hello")

	h.clock.Advance(1900 * time.Millisecond)
	require.Equal(t, Recording, h.machine.State())
	require.Equal(t, 1900*time.Millisecond, h.machine.Elapsed())

	h.clock.Advance(100 * time.Millisecond)
	require.Equal(t, Processing, h.machine.State())
	require.Len(t, got, 1)
	require.Equal(t, "hello", string(got[0].Audio))
	require.Equal(t, 2*time.Second, got[0].Duration)
	require.Zero(t, h.clock.ActiveTimers())

	// A manual stop after the auto-stop has nothing to do.
	utt, err := h.machine.StopRecording()
	require.NoError(t, err)
	require.Nil(t, utt)
}

func TestMachineAudioSizeLimit(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{MaxAudioBytes: 4})

	done := make(chan Utterance, 1)
	h.machine.OnAutoStop(func(u Utterance) { done <- u })

	require.NoError(t, h.machine.StartRecording(context.Background()))
	h.send(t, "abcd")
	h.send(t, "e")

	select {
	case u := <-done:
		require.Equal(t, "abcd", string(u.Audio))
	case <-time.After(2 * time.Second):
		t.Fatal("recording was not stopped at the size limit")
	}
	require.Equal(t, Processing, h.machine.State())
}

func TestMachineStreamFailure(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	require.NoError(t, h.machine.StartRecording(context.Background()))

	h.device.last().fail(&DeviceError{Kind: Busy, Err: errors.New("device grabbed")})

	require.Eventually(t, func() bool { return h.machine.State() == Error }, 2*time.Second, 5*time.Millisecond)
	require.True(t, apperr.Is(h.machine.Err(), apperr.Device))
	require.Zero(t, h.clock.ActiveTimers())

	require.True(t, h.machine.Recover())
	require.NoError(t, h.machine.StartRecording(context.Background()))
}

func TestMachineFailReleasesDevice(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	require.NoError(t, h.machine.StartRecording(context.Background()))

	h.machine.Fail(apperr.New(apperr.Unknown, "boom"))
	require.Equal(t, Error, h.machine.State())
	require.True(t, h.device.last().isClosed())

	snap := h.machine.Snapshot()
	require.Equal(t, Error, snap.State)
	require.EqualError(t, snap.Err, "UNKNOWN_ERROR: boom")
}

func TestMachineSessionIDsAreUnique(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()
	seen := map[string]bool{}

	for i := 0; i < 5; i++ {
		require.NoError(t, h.machine.StartRecording(ctx))
		utt, err := h.machine.StopRecording()
		require.NoError(t, err)
		require.False(t, seen[utt.SessionID.String()])
		seen[utt.SessionID.String()] = true
		require.True(t, h.machine.Finish())
	}
}

func TestMachineSessionGuards(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	ctx := context.Background()

	require.NoError(t, h.machine.StartRecording(ctx))
	old, err := h.machine.StopRecording()
	require.NoError(t, err)
	require.True(t, h.machine.Cancel())

	require.NoError(t, h.machine.StartRecording(ctx))
	current, err := h.machine.StopRecording()
	require.NoError(t, err)

	// Late results of the cancelled session must not touch the new one.
	require.False(t, h.machine.FailSession(old.SessionID, errors.New("late")))
	require.False(t, h.machine.BeginPlaybackFor(old.SessionID))
	require.False(t, h.machine.FinishSession(old.SessionID))
	require.Equal(t, Processing, h.machine.State())

	require.True(t, h.machine.BeginPlaybackFor(current.SessionID))
	require.True(t, h.machine.FailSession(current.SessionID, errors.New("speaker unplugged")))
	require.Equal(t, Error, h.machine.State())
	require.False(t, h.machine.FailSession(current.SessionID, errors.New("twice")))
}

// gateOpen makes the next Open block and returns the release function.
func (h *machineHarness) gateOpen(t *testing.T) (release func()) {
	t.Helper()
	gate := make(chan struct{})
	h.device.mu.Lock()
	h.device.openGate = gate
	h.device.opening = make(chan struct{}, 1)
	h.device.mu.Unlock()
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

func (h *machineHarness) startInBackground() <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.machine.StartRecording(context.Background()) }()
	<-h.device.opening
	return errCh
}

// within fails the test if fn does not return before the deadline.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked while the microphone was opening", what)
	}
}

func TestMachineConcurrentStartIsRejected(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	release := h.gateOpen(t)
	first := h.startInBackground()

	var (
		second error
		state  State
		snap   Snapshot
	)
	within(t, time.Second, "second StartRecording", func() { second = h.machine.StartRecording(context.Background()) })
	within(t, time.Second, "State", func() { state = h.machine.State() })
	within(t, time.Second, "Snapshot", func() { snap = h.machine.Snapshot() })
	require.ErrorIs(t, second, ErrNotIdle)
	require.Equal(t, Idle, state)
	require.Equal(t, Idle, snap.State)

	release()
	require.NoError(t, <-first)
	require.Equal(t, Recording, h.machine.State())
	require.Len(t, h.device.streams, 1)
	require.Equal(t, []State{Recording}, h.states())
}

func TestMachineCancelWhileOpening(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	release := h.gateOpen(t)
	first := h.startInBackground()

	var cancelled bool
	within(t, time.Second, "Cancel", func() { cancelled = h.machine.Cancel() })
	require.True(t, cancelled)
	require.False(t, h.machine.Cancel(), "a start is cancelled once")

	release()
	err := <-first
	require.True(t, apperr.IsCancelled(err), "got %v", err)
	require.True(t, h.device.last().isClosed())
	require.Equal(t, Idle, h.machine.State())
	require.Empty(t, h.states())

	h.device.mu.Lock()
	h.device.openGate = nil
	h.device.mu.Unlock()
	require.NoError(t, h.machine.StartRecording(context.Background()))
	require.Equal(t, Recording, h.machine.State())
}

func TestMachineFailWhileOpening(t *testing.T) {
	h := newMachineHarness(t, MachineConfig{})
	release := h.gateOpen(t)
	first := h.startInBackground()

	h.machine.Fail(errors.New("device vanished"))
	release()

	require.True(t, apperr.IsCancelled(<-first))
	require.True(t, h.device.last().isClosed())
	require.Equal(t, Error, h.machine.State())
}
