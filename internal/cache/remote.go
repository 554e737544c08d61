package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// RemoteConfig points the remote tier at a shared cache service.
type RemoteConfig struct {
	BaseURL string
	Token   string
	// Timeout bounds every request.
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker for Cooldown.
	FailureThreshold uint32
	Cooldown         time.Duration
}

func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Timeout:          3 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// Remote is the shared tier, spoken to over HTTP:
//
//	GET  {base}/v1/translations/{key}        200 entry, 404 miss
//	PUT  {base}/v1/translations/{key}        upsert
//	POST {base}/v1/translations/{key}/hits   usage increment
//
// Every call goes through a circuit breaker so a dead service costs one
// fast failure per lookup instead of a full timeout.
type Remote struct {
	base    *url.URL
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// StatusError is a non-2xx reply from the remote service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote cache returned %d: %s", e.Status, e.Body)
}

func NewRemote(cfg RemoteConfig) (*Remote, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote cache url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote cache url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteConfig().Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultRemoteConfig().FailureThreshold
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-cache",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Cache: %s breaker %s -> %s", name, from, to)
		},
	})

	return &Remote{
		base:    base,
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}, nil
}

func (r *Remote) Name() string {
	return TierRemote
}

// BreakerState reports "closed", "half-open" or "open".
func (r *Remote) BreakerState() string {
	return r.breaker.State().String()
}

func (r *Remote) Get(ctx context.Context, key Key) (Entry, bool, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.do(ctx, http.MethodGet, r.entryURL(key), nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		if err := checkStatus(resp); err != nil {
			return nil, err
		}

		var e Entry
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return nil, fmt.Errorf("decode remote entry: %w", err)
		}
		if e.Key != key {
			return nil, fmt.Errorf("remote returned entry for %q, want %q", e.Key, key)
		}
		return e, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	if out == nil {
		return Entry{}, false, nil
	}
	return out.(Entry), true, nil
}

func (r *Remote) Put(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode remote entry: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.do(ctx, http.MethodPut, r.entryURL(e.Key), body)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return nil, checkStatus(resp)
	})
	return err
}

func (r *Remote) Hit(ctx context.Context, key Key, at time.Time) error {
	body, err := json.Marshal(struct {
		At time.Time `json:"at"`
	}{At: at})
	if err != nil {
		return err
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.do(ctx, http.MethodPost, r.entryURL(key)+"/hits", body)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, checkStatus(resp)
	})
	return err
}

func (r *Remote) entryURL(key Key) string {
	return r.base.JoinPath("v1", "translations", string(key)).String()
}

func (r *Remote) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build remote request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote cache %s: %w", method, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}

// IsBreakerOpen reports whether err was produced by an open breaker rather
// than by the service.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
