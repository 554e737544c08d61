package transcriber

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
	"github.com/leonardotrapani/voxbridge/internal/recording"
)

var pcm16 = recording.DefaultConfig().Encoding()

func TestEncodeWAVHeader(t *testing.T) {
	raw := make([]byte, 3200)
	wav, err := EncodeWAV(raw, pcm16)
	require.NoError(t, err)
	require.Len(t, wav, 44+3200)

	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, uint32(36+3200), binary.LittleEndian.Uint32(wav[4:8]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]), "PCM")
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]), "channels")
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	require.Equal(t, uint32(3200), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestEncodeWAVFormats(t *testing.T) {
	tests := []struct {
		name    string
		enc     recording.Encoding
		raw     int
		data    uint32
		format  uint16
		wantErr bool
	}{
		{name: "stereo float", enc: recording.Encoding{Format: "f32le", SampleRate: 48000, Channels: 2}, raw: 80, data: 80, format: 3},
		{name: "partial frame dropped", enc: pcm16, raw: 7, data: 6, format: 1},
		{name: "unsigned 8 bit", enc: recording.Encoding{Format: "u8", SampleRate: 8000, Channels: 1}, raw: 5, data: 5, format: 1},
		{name: "unknown format", enc: recording.Encoding{Format: "opus", SampleRate: 48000, Channels: 1}, wantErr: true},
		{name: "zero rate", enc: recording.Encoding{Format: "s16le", Channels: 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wav, err := EncodeWAV(make([]byte, tt.raw), tt.enc)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.format, binary.LittleEndian.Uint16(wav[20:22]))
			require.Equal(t, tt.data, binary.LittleEndian.Uint32(wav[40:44]))
		})
	}
}

func newWhisperServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestAdapter(srv *httptest.Server) *WhisperAdapter {
	return NewWhisperAdapter(Config{Provider: "openai", APIKey: "sk-test", Model: "whisper-1", BaseURL: srv.URL + "/v1"})
}

func TestWhisperAdapterTranscribe(t *testing.T) {
	srv, calls := newWhisperServer(t, http.StatusOK, `{"text":"  Bonjour  "}`)

	text, err := newTestAdapter(srv).Transcribe(context.Background(), Request{Audio: make([]byte, 320), Encoding: pcm16, Language: "fr"})
	require.NoError(t, err)
	require.Equal(t, "Bonjour", text)
	require.EqualValues(t, 1, calls.Load())
}

func TestWhisperAdapterNoSpeech(t *testing.T) {
	srv, calls := newWhisperServer(t, http.StatusOK, `{"text":""}`)
	a := newTestAdapter(srv)

	_, err := a.Transcribe(context.Background(), Request{Audio: make([]byte, 320), Encoding: pcm16})
	require.True(t, apperr.Is(err, apperr.NoSpeech))
	require.False(t, backoff.DefaultIsRetryable(err))

	_, err = a.Transcribe(context.Background(), Request{Encoding: pcm16})
	require.True(t, apperr.Is(err, apperr.NoSpeech))
	require.EqualValues(t, 1, calls.Load(), "empty audio must not reach the API")
}

func TestWhisperAdapterUpstreamErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      apperr.Code
		retryable bool
	}{
		{"server error", http.StatusBadGateway, apperr.Upstream, true},
		{"rate limited", http.StatusTooManyRequests, apperr.Upstream, true},
		{"bad request", http.StatusBadRequest, apperr.Client, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newWhisperServer(t, tt.status, `{"error":{"message":"nope","type":"server_error"}}`)
			_, err := newTestAdapter(srv).Transcribe(context.Background(), Request{Audio: make([]byte, 320), Encoding: pcm16})
			require.Error(t, err)
			require.Equal(t, tt.code, apperr.CodeOf(err))
			require.Equal(t, tt.status, apperr.StatusOf(err))
			require.Equal(t, tt.retryable, backoff.DefaultIsRetryable(err))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(Config{Provider: "gemini", APIKey: "AIza"})
	require.ErrorContains(t, err, "unsupported transcription provider")

	_, err = New(Config{Provider: "groq"})
	require.ErrorContains(t, err, "API key required")

	tr, err := New(Config{Provider: "groq", APIKey: "gsk_x"})
	require.NoError(t, err)
	w := tr.(*WhisperAdapter)
	require.Equal(t, "whisper-large-v3-turbo", w.config.Model)
	require.Equal(t, "https://api.groq.com/openai/v1", w.config.BaseURL)
}
