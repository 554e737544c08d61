package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
)

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		src, tgt string
		keywords []string
		contains []string
		excludes []string
	}{
		{
			name:     "language pair",
			src:      "fr",
			tgt:      "en",
			contains: []string{"French (fr)", "English (en)", "Output ONLY the translation"},
			excludes: []string{"untranslated"},
		},
		{
			name:     "with keywords",
			src:      "es",
			tgt:      "de",
			keywords: []string{"Cruz Roja", "EMT"},
			contains: []string{"Spanish (es)", "German (de)", "Cruz Roja, EMT"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prompt := BuildSystemPrompt(tc.src, tc.tgt, tc.keywords)
			for _, want := range tc.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt should contain %q, got:\n%s", want, prompt)
				}
			}
			for _, unwanted := range tc.excludes {
				if strings.Contains(prompt, unwanted) {
					t.Errorf("prompt should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	if got := BuildUserPrompt("hola", ""); got != "hola" {
		t.Errorf("BuildUserPrompt without custom prompt = %q", got)
	}
	got := BuildUserPrompt("hola", "Use medical terminology.")
	if !strings.HasPrefix(got, "Use medical terminology.") || !strings.HasSuffix(got, "Text to translate:\nhola") {
		t.Errorf("BuildUserPrompt with custom prompt = %q", got)
	}
}

func TestCleanOutput(t *testing.T) {
	tests := map[string]string{
		"  Hello  ":      "Hello",
		`"Hello"`:        "Hello",
		"“Hello”":        "Hello",
		"«Bonjour»":      "Bonjour",
		`"a" and "b"`:    `"a" and "b"`,
		`He said "stop"`: `He said "stop"`,
		"":               "",
	}
	for in, want := range tests {
		if got := cleanOutput(in); got != want {
			t.Errorf("cleanOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

type chatStub struct {
	mu       sync.Mutex
	status   int
	reply    string
	requests []map[string]any
}

func (s *chatStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.requests = append(s.requests, body)
	status, reply := s.status, s.reply
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream unhappy","type":"server_error"}}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   body["model"],
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}}},
	})
}

func newChatAdapter(t *testing.T, stub *chatStub) *ChatAdapter {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewChatAdapter(Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
}

func TestChatAdapterTranslate(t *testing.T) {
	stub := &chatStub{reply: `"Hello"`}
	a := newChatAdapter(t, stub)

	got, err := a.Translate(context.Background(), Request{Text: "Bonjour", SourceLang: "fr", TargetLang: "en"})
	require.NoError(t, err)
	require.Equal(t, "Hello", got)

	require.Len(t, stub.requests, 1)
	require.Equal(t, "gpt-4o-mini", stub.requests[0]["model"])
	messages := stub.requests[0]["messages"].([]any)
	require.Len(t, messages, 2)
	require.Contains(t, messages[0].(map[string]any)["content"], "French (fr)")
	require.Equal(t, "Bonjour", messages[1].(map[string]any)["content"])
}

func TestChatAdapterErrors(t *testing.T) {
	t.Run("server error is retryable", func(t *testing.T) {
		a := newChatAdapter(t, &chatStub{status: http.StatusServiceUnavailable})
		_, err := a.Translate(context.Background(), Request{Text: "x", SourceLang: "fr", TargetLang: "en"})
		require.Equal(t, apperr.Upstream, apperr.CodeOf(err))
		require.Equal(t, http.StatusServiceUnavailable, apperr.StatusOf(err))
		require.True(t, backoff.DefaultIsRetryable(err))
		require.ErrorContains(t, err, "upstream unhappy")
	})

	t.Run("unauthorized is terminal", func(t *testing.T) {
		a := newChatAdapter(t, &chatStub{status: http.StatusUnauthorized})
		_, err := a.Translate(context.Background(), Request{Text: "x", SourceLang: "fr", TargetLang: "en"})
		require.Equal(t, apperr.Client, apperr.CodeOf(err))
		require.False(t, backoff.DefaultIsRetryable(err))
	})

	t.Run("empty reply", func(t *testing.T) {
		a := newChatAdapter(t, &chatStub{reply: "   "})
		_, err := a.Translate(context.Background(), Request{Text: "x", SourceLang: "fr", TargetLang: "en"})
		require.Equal(t, apperr.Upstream, apperr.CodeOf(err))
		require.True(t, backoff.DefaultIsRetryable(err))
	})
}

func newGeminiServer(t *testing.T, status int, reply string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"backend error","status":"INTERNAL"}}`, status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": reply}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestGeminiAdapterTranslate(t *testing.T) {
	srv, paths := newGeminiServer(t, http.StatusOK, "Hello\n")
	a, err := NewGeminiAdapter(context.Background(), Config{Provider: "gemini", APIKey: "AIza-test", Model: "gemini-2.5-flash", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	got, err := a.Translate(context.Background(), Request{Text: "Bonjour", SourceLang: "fr", TargetLang: "en"})
	require.NoError(t, err)
	require.Equal(t, "Hello", got)
	require.Len(t, *paths, 1)
	require.Contains(t, (*paths)[0], "gemini-2.5-flash:generateContent")
}

func TestGeminiAdapterServerError(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusInternalServerError, "")
	a, err := NewGeminiAdapter(context.Background(), Config{Provider: "gemini", APIKey: "AIza-test", Model: "gemini-2.5-flash", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = a.Translate(context.Background(), Request{Text: "Bonjour", SourceLang: "fr", TargetLang: "en"})
	require.Error(t, err)
	require.Equal(t, apperr.Upstream, apperr.CodeOf(err))
	require.True(t, backoff.DefaultIsRetryable(err))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Provider: "deepl", APIKey: "x"})
	require.ErrorContains(t, err, "unsupported translation provider")

	_, err = New(ctx, Config{Provider: "openai"})
	require.ErrorContains(t, err, "API key required")

	tr, err := New(ctx, Config{Provider: "groq", APIKey: "gsk_x"})
	require.NoError(t, err)
	chat := tr.(*ChatAdapter)
	require.Equal(t, "llama-3.3-70b-versatile", chat.config.Model)

	tr, err = New(ctx, Config{Provider: "gemini", APIKey: "AIza-test"})
	require.NoError(t, err)
	require.IsType(t, &GeminiAdapter{}, tr)
}
