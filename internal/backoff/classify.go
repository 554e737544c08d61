package backoff

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
)

var retryableMessages = []string{
	"rate limit",
	"too many requests",
	"unavailable",
	"timeout",
	"timed out",
	"gateway timeout",
}

// DefaultIsRetryable treats transport failures, 5xx, 429 and 408 responses,
// and upstream messages mentioning rate limits, unavailability or timeouts
// as transient. Our own limiter denials, validation failures and
// cancellations are terminal.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch apperr.CodeOf(err) {
	case apperr.Validation, apperr.RateLimitExceeded, apperr.Cancelled,
		apperr.Permission, apperr.Device, apperr.Offline, apperr.NoSpeech:
		return false
	case apperr.Network:
		return true
	}

	if status := apperr.StatusOf(err); status != 0 {
		return RetryableStatus(status)
	}

	if IsNetworkError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func RetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

// IsNetworkError reports transport-level failures: refused or reset
// connections, DNS failures, timeouts and truncated responses.
func IsNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
