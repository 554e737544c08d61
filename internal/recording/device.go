package recording

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
)

type AudioFrame struct {
	Data      []byte
	Timestamp time.Time
}

// Encoding describes raw PCM audio.
type Encoding struct {
	Format     string
	SampleRate int
	Channels   int
}

func (e Encoding) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", e.Format, e.SampleRate, e.Channels)
}

// BytesPerSecond is zero for formats whose sample width is unknown.
func (e Encoding) BytesPerSecond() int {
	var width int
	switch e.Format {
	case "s16", "s16le", "s16be":
		width = 2
	case "s24", "s24le":
		width = 3
	case "s32", "s32le", "f32", "f32le":
		width = 4
	case "u8", "s8":
		width = 1
	}
	return width * e.SampleRate * e.Channels
}

// Device is a microphone.
type Device interface {
	// RequestAccess checks that capture is possible without starting it.
	RequestAccess(ctx context.Context) error
	// Open starts capturing. The stream owns the device until Close.
	Open(ctx context.Context) (Stream, error)
}

// Stream delivers captured audio. Frames and Errors are both closed once
// capture has ended; Close stops capture and releases the device.
type Stream interface {
	Frames() <-chan AudioFrame
	Errors() <-chan error
	Close() error
}

type DeviceErrorKind string

const (
	Denied   DeviceErrorKind = "denied"
	NoDevice DeviceErrorKind = "no_device"
	Busy     DeviceErrorKind = "busy"
	Blocked  DeviceErrorKind = "blocked_by_policy"
	Failed   DeviceErrorKind = "failed"
)

// DeviceError is a microphone failure. Only Denied is a permission problem;
// every other kind is a device problem.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("microphone %s", e.Kind)
	}
	return fmt.Sprintf("microphone %s: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func (e *DeviceError) Code() apperr.Code {
	if e.Kind == Denied {
		return apperr.Permission
	}
	return apperr.Device
}

// classify turns a device failure into an apperr.Error, preserving the
// DeviceError in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if !errors.As(err, &de) {
		de = &DeviceError{Kind: Failed, Err: err}
		err = de
	}

	msg := map[DeviceErrorKind]string{
		Denied:   "microphone access denied, grant access and try again",
		NoDevice: "no microphone found",
		Busy:     "microphone is in use by another application",
		Blocked:  "microphone is blocked by system policy",
		Failed:   "microphone failed",
	}[de.Kind]

	return &apperr.Error{Code: de.Code(), Message: msg, Err: err}
}

// AsDeviceError extracts the DeviceError from err's chain.
func AsDeviceError(err error) (*DeviceError, bool) {
	var de *DeviceError
	ok := errors.As(err, &de)
	return de, ok
}

// classifyOutput maps diagnostic output from the capture backend to a kind.
func classifyOutput(output string) DeviceErrorKind {
	out := strings.ToLower(output)
	switch {
	case strings.Contains(out, "permission denied"), strings.Contains(out, "access denied"),
		strings.Contains(out, "not authorized"):
		return Denied
	case strings.Contains(out, "policy"), strings.Contains(out, "not allowed"):
		return Blocked
	case strings.Contains(out, "busy"):
		return Busy
	case strings.Contains(out, "no such"), strings.Contains(out, "not found"),
		strings.Contains(out, "no target"), strings.Contains(out, "connection refused"):
		return NoDevice
	default:
		return Failed
	}
}
