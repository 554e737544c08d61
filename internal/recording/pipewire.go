package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	SampleRate        int
	Channels          int
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16le",
		BufferSize:        4096,
		Device:            "",
		ChannelBufferSize: 20,
	}
}

func (c Config) Encoding() Encoding {
	return Encoding{Format: c.Format, SampleRate: c.SampleRate, Channels: c.Channels}
}

// Recorder runs one pw-record capture at a time.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cmd, cancel and stderr
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr []string

	wg sync.WaitGroup
}

func NewRecorder(config Config) *Recorder {
	return &Recorder{config: config}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, &DeviceError{Kind: Busy, Err: errors.New("already recording")}
	}

	if err := r.validateConfig(); err != nil {
		return nil, nil, err
	}

	// The capture outlives the caller's request context; Stop ends it.
	recordingCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	frameCh := make(chan AudioFrame, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.stderr = nil
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, frameCh, errCh)

	return frameCh, errCh, nil
}

func (r *Recorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}
	r.requestCancel()
	return nil
}

func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) captureLoop(ctx context.Context, frameCh chan<- AudioFrame, errCh chan<- error) {
	defer func() {
		close(frameCh)
		close(errCh)
		r.recording.Store(false)

		r.mu.Lock()
		r.cmd = nil
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	cmd := exec.CommandContext(ctx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.emitErr(errCh, &DeviceError{Kind: Failed, Err: fmt.Errorf("create stdout pipe: %w", err)})
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.emitErr(errCh, &DeviceError{Kind: Failed, Err: fmt.Errorf("create stderr pipe: %w", err)})
		return
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		r.emitErr(errCh, &DeviceError{Kind: NoDevice, Err: fmt.Errorf("start pw-record: %w", err)})
		return
	}

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			log.Printf("Recording stderr: %s", line)
			r.mu.Lock()
			if len(r.stderr) < 20 {
				r.stderr = append(r.stderr, line)
			}
			r.mu.Unlock()
		}
	}()

	buffer := make([]byte, r.config.BufferSize)
	var droppedCount int
	lastDropLog := time.Now()

	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			frameData := make([]byte, n)
			copy(frameData, buffer[:n])

			select {
			case frameCh <- AudioFrame{Data: frameData, Timestamp: time.Now()}:
			case <-ctx.Done():
				r.reap(ctx, stderrDone, errCh)
				return
			default:
				droppedCount++
				if time.Since(lastDropLog) > time.Second {
					log.Printf("Recording: dropped %d frames due to backpressure", droppedCount)
					lastDropLog = time.Now()
					droppedCount = 0
				}
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
				r.emitErr(errCh, &DeviceError{Kind: Failed, Err: fmt.Errorf("read audio: %w", readErr)})
			}
			r.reap(ctx, stderrDone, errCh)
			return
		}

		select {
		case <-ctx.Done():
			r.reap(ctx, stderrDone, errCh)
			return
		default:
		}
	}
}

// reap waits for pw-record to exit. An exit we did not ask for is reported
// as a device error classified from the process's stderr.
func (r *Recorder) reap(ctx context.Context, stderrDone <-chan struct{}, errCh chan<- error) {
	<-stderrDone
	waitErr := r.cmd.Wait()
	if waitErr == nil || ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	output := strings.Join(r.stderr, "\n")
	r.mu.Unlock()

	r.emitErr(errCh, &DeviceError{
		Kind: classifyOutput(output),
		Err:  fmt.Errorf("pw-record exited: %w: %s", waitErr, strings.TrimSpace(output)),
	})
}

func (r *Recorder) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Recorder) emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
	log.Printf("Recording error: %v", err)
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.Format == "" {
		return fmt.Errorf("invalid Format: empty")
	}
	if frameBytes := r.config.Encoding().BytesPerSecond() / r.config.SampleRate; frameBytes > 0 {
		if r.config.BufferSize%frameBytes != 0 {
			log.Printf("Recording: BufferSize %d not aligned to frame size %d; audio frames may split",
				r.config.BufferSize, frameBytes)
		}
	}
	return nil
}

// PipeWire is the microphone as seen through pw-record.
type PipeWire struct {
	config Config
}

func NewPipeWire(config Config) *PipeWire {
	return &PipeWire{config: config}
}

func (p *PipeWire) RequestAccess(ctx context.Context) error {
	return CheckPipeWireAvailable(ctx)
}

func (p *PipeWire) Open(ctx context.Context) (Stream, error) {
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, err
	}
	rec := NewRecorder(p.config)
	frames, errs, err := rec.Start(ctx)
	if err != nil {
		return nil, err
	}
	return &recorderStream{rec: rec, frames: frames, errs: errs}, nil
}

type recorderStream struct {
	rec    *Recorder
	frames <-chan AudioFrame
	errs   <-chan error
	once   sync.Once
}

func (s *recorderStream) Frames() <-chan AudioFrame { return s.frames }
func (s *recorderStream) Errors() <-chan error      { return s.errs }

func (s *recorderStream) Close() error {
	s.once.Do(func() {
		s.rec.Stop()
		s.rec.Wait()
	})
	return nil
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return &DeviceError{Kind: NoDevice, Err: fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, "pw-cli", "info").CombinedOutput()
	if err != nil {
		return &DeviceError{
			Kind: classifyOutput(string(out)),
			Err:  fmt.Errorf("PipeWire not running or accessible: %w", err),
		}
	}
	return nil
}
