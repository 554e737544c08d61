package recording

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.Equal(t, 16000, config.SampleRate)
	require.Equal(t, 1, config.Channels)
	require.Equal(t, "s16le", config.Format)
	require.Equal(t, 4096, config.BufferSize)
	require.Empty(t, config.Device)
	require.Equal(t, 20, config.ChannelBufferSize)
	require.Equal(t, 32000, config.Encoding().BytesPerSecond())
}

func TestNewRecorder(t *testing.T) {
	recorder := NewRecorder(DefaultConfig())
	require.NotNil(t, recorder)
	require.False(t, recorder.IsRecording())
	require.NoError(t, recorder.Stop(), "stopping an idle recorder is a no-op")
}

func TestRecorderValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "invalid sample rate", mutate: func(c *Config) { c.SampleRate = 0 }, expectError: true},
		{name: "invalid channels", mutate: func(c *Config) { c.Channels = -1 }, expectError: true},
		{name: "invalid buffer size", mutate: func(c *Config) { c.BufferSize = 0 }, expectError: true},
		{name: "invalid channel buffer size", mutate: func(c *Config) { c.ChannelBufferSize = 0 }, expectError: true},
		{name: "empty format", mutate: func(c *Config) { c.Format = "" }, expectError: true},
		{name: "unaligned buffer only warns", mutate: func(c *Config) { c.BufferSize = 4095 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := NewRecorder(config).validateConfig()
			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBuildPwRecordArgs(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t,
		[]string{"--format", "s16le", "--rate", "16000", "--channels", "1", "-"},
		NewRecorder(config).buildPwRecordArgs())

	config.Device = "alsa_input.usb"
	args := NewRecorder(config).buildPwRecordArgs()
	require.Equal(t, []string{"--target", "alsa_input.usb"}, args[len(args)-2:])
}

func TestEncodingBytesPerSecond(t *testing.T) {
	require.Equal(t, 96000, Encoding{Format: "f32le", SampleRate: 12000, Channels: 2}.BytesPerSecond())
	require.Equal(t, 0, Encoding{Format: "opus", SampleRate: 48000, Channels: 1}.BytesPerSecond())
	require.Equal(t, "s16le/16000Hz/1ch", DefaultConfig().Encoding().String())
}

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		output string
		want   DeviceErrorKind
	}{
		{"error: Permission denied", Denied},
		{"client not authorized", Denied},
		{"blocked by session policy", Blocked},
		{"Device or resource busy", Busy},
		{"no target node found", NoDevice},
		{"pw_context_connect: Connection refused", NoDevice},
		{"segfault", Failed},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			require.Equal(t, tt.want, classifyOutput(tt.output))
		})
	}
}

func TestClassifyDeviceErrors(t *testing.T) {
	tests := []struct {
		kind DeviceErrorKind
		code apperr.Code
	}{
		{Denied, apperr.Permission},
		{NoDevice, apperr.Device},
		{Busy, apperr.Device},
		{Blocked, apperr.Device},
		{Failed, apperr.Device},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := classify(&DeviceError{Kind: tt.kind, Err: errors.New("boom")})
			require.Equal(t, tt.code, apperr.CodeOf(err))

			de, ok := AsDeviceError(err)
			require.True(t, ok)
			require.Equal(t, tt.kind, de.Kind)
		})
	}

	t.Run("unknown errors become device failures", func(t *testing.T) {
		err := classify(errors.New("weird"))
		require.Equal(t, apperr.Device, apperr.CodeOf(err))
		de, ok := AsDeviceError(err)
		require.True(t, ok)
		require.Equal(t, Failed, de.Kind)
	})

	require.NoError(t, classify(nil))
}
