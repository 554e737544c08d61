package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/leonardotrapani/voxbridge/internal/apperr"
	"github.com/leonardotrapani/voxbridge/internal/backoff"
)

// Classify turns an SDK failure into an *apperr.Error carrying the upstream
// status, so the retry classifier can tell transient from terminal failures.
// Errors that are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.Cancelled, err)
	}

	if status, msg, ok := upstreamStatus(err); ok {
		out := apperr.Wrap(codeForStatus(status), err)
		out.Status = status
		if msg != "" {
			out.Message = msg
		}
		return out
	}

	if backoff.IsNetworkError(err) {
		return apperr.Wrap(apperr.Network, err)
	}
	return apperr.Wrap(apperr.Unknown, err)
}

func codeForStatus(status int) apperr.Code {
	switch {
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return apperr.Upstream
	case status >= 400:
		return apperr.Client
	default:
		return apperr.Upstream
	}
}

func upstreamStatus(err error) (int, string, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, apiErr.Message, true
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return reqErr.HTTPStatusCode, msg, true
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) && gErr.Code != 0 {
		return gErr.Code, gErr.Message, true
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil && gErrPtr.Code != 0 {
		return gErrPtr.Code, gErrPtr.Message, true
	}

	return 0, "", false
}
