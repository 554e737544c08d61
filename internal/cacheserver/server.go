// Package cacheserver serves the shared translation cache that the remote
// cache tier talks to, backed by any cache.Tier (normally the SQLite tier).
package cacheserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/voxbridge/internal/cache"
)

const maxBodyBytes = 1 << 20

type Server struct {
	store cache.Tier
	token string
	mux   *http.ServeMux
}

func New(store cache.Tier, token string) *Server {
	s := &Server{store: store, token: token, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/translations/{key}", s.handleGet)
	s.mux.HandleFunc("PUT /v1/translations/{key}", s.handlePut)
	s.mux.HandleFunc("POST /v1/translations/{key}/hits", s.handleHit)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)

	if r.URL.Path != "/healthz" && !s.authorized(r) {
		log.Printf("Cache server: %s %s rejected (request %s)", r.Method, r.URL.Path, reqID)
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	log.Printf("Cache server: %s %s in %v (request %s)", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond), reqID)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	want := "Bearer " + s.token
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(r.PathValue("key"))
	e, ok, err := s.store.Get(r.Context(), key)
	if err != nil {
		log.Printf("Cache server: get %s failed: %v", key, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(r.PathValue("key"))

	var e cache.Entry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid entry: %v", err))
		return
	}
	if e.Key != key {
		writeError(w, http.StatusBadRequest, "entry key does not match path")
		return
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if e.LastUsedAt.IsZero() {
		e.LastUsedAt = time.Now()
	}

	if err := s.store.Put(r.Context(), e); err != nil {
		log.Printf("Cache server: put %s failed: %v", key, err)
		writeError(w, http.StatusInternalServerError, "store failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(r.PathValue("key"))

	var body struct {
		At time.Time `json:"at"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid hit: %v", err))
			return
		}
	}
	if body.At.IsZero() {
		body.At = time.Now()
	}

	if err := s.store.Hit(r.Context(), key, body.At); err != nil {
		log.Printf("Cache server: hit %s failed: %v", key, err)
		writeError(w, http.StatusInternalServerError, "hit failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Cache server: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return Serve(ctx, ln, h)
}

func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Cache server: listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("Cache server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
