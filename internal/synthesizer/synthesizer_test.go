package synthesizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
)

func newSpeechServer(t *testing.T, status int, payload []byte) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&last)
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"speech failed","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestSpeechAdapterSynthesize(t *testing.T) {
	srv, last := newSpeechServer(t, http.StatusOK, []byte("RIFF....WAVE"))
	a := NewSpeechAdapter(Config{APIKey: "sk-test", Model: "tts-1", BaseURL: srv.URL + "/v1"})

	audio, err := a.Synthesize(context.Background(), Request{Text: "Hello", Language: "en"})
	require.NoError(t, err)
	require.Equal(t, "RIFF....WAVE", string(audio.Data))
	require.Equal(t, "wav", audio.Format)

	require.Equal(t, "Hello", (*last)["input"])
	require.Equal(t, "nova", (*last)["voice"])
	require.Equal(t, "wav", (*last)["response_format"])
}

func TestSpeechAdapterErrors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		a := NewSpeechAdapter(Config{APIKey: "sk-test"})
		_, err := a.Synthesize(context.Background(), Request{})
		require.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("server error", func(t *testing.T) {
		srv, _ := newSpeechServer(t, http.StatusInternalServerError, nil)
		a := NewSpeechAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
		_, err := a.Synthesize(context.Background(), Request{Text: "Hello"})
		require.Equal(t, apperr.Upstream, apperr.CodeOf(err))
		require.True(t, backoff.DefaultIsRetryable(err))
	})

	t.Run("empty payload", func(t *testing.T) {
		srv, _ := newSpeechServer(t, http.StatusOK, nil)
		a := NewSpeechAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
		_, err := a.Synthesize(context.Background(), Request{Text: "Hello"})
		require.Equal(t, apperr.Upstream, apperr.CodeOf(err))
	})
}

func TestNew(t *testing.T) {
	_, err := New(Config{Provider: "groq", APIKey: "gsk_x"})
	require.ErrorContains(t, err, "unsupported synthesis provider")

	_, err = New(Config{Provider: "openai", APIKey: "sk-x", Voice: "darth"})
	require.ErrorContains(t, err, "voice")

	s, err := New(Config{Provider: "openai", APIKey: "sk-x", Voice: "alloy"})
	require.NoError(t, err)
	require.Equal(t, "tts-1", s.(*SpeechAdapter).config.Model)
}
