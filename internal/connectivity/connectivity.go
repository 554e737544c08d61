// Package connectivity answers "is the network reachable right now", the
// signal consulted before any remote cache or remote translate call.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Checker interface {
	Online(ctx context.Context) bool
}

// Static always reports the same answer.
type Static bool

func (s Static) Online(context.Context) bool {
	return bool(s)
}

// Switch lets the user force offline mode on top of another checker.
type Switch struct {
	next    Checker
	offline atomic.Bool
}

func NewSwitch(next Checker, forceOffline bool) *Switch {
	s := &Switch{next: next}
	s.offline.Store(forceOffline)
	return s
}

func (s *Switch) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *Switch) ForcedOffline() bool {
	return s.offline.Load()
}

func (s *Switch) Online(ctx context.Context) bool {
	if s.offline.Load() {
		return false
	}
	if s.next == nil {
		return true
	}
	return s.next.Online(ctx)
}

const DefaultCheckTimeout = 2 * time.Second

// HTTPCheck issues a HEAD request to URL and caches the answer for TTL. Any
// response, whatever its status, means the network is up. The zero value of
// every field but URL is usable: no Timeout means DefaultCheckTimeout and no
// Client means http.DefaultClient.
type HTTPCheck struct {
	URL     string
	Timeout time.Duration
	TTL     time.Duration
	Client  *http.Client

	mu        sync.Mutex
	checkedAt time.Time
	online    bool
	now       func() time.Time
}

func NewHTTPCheck(url string, timeout, ttl time.Duration) *HTTPCheck {
	return &HTTPCheck{
		URL:     url,
		Timeout: timeout,
		TTL:     ttl,
		Client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (p *HTTPCheck) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clockNow()
	if !p.checkedAt.IsZero() && now.Sub(p.checkedAt) < p.TTL {
		return p.online
	}

	online := p.reach(ctx)
	if online != p.online || p.checkedAt.IsZero() {
		state := "offline"
		if online {
			state = "online"
		}
		log.Printf("Connectivity: network is %s", state)
	}
	p.online = online
	p.checkedAt = now
	return online
}

func (p *HTTPCheck) clockNow() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func (p *HTTPCheck) reach(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
