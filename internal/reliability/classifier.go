package reliability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ProviderError is a failed call to an external text or speech provider.
type ProviderError struct {
	Provider   string
	Code       string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Code, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatusError builds a ProviderError for a non-2xx response.
func HTTPStatusError(provider string, status int, body string) *ProviderError {
	body = strings.TrimSpace(body)
	if body == "" {
		body = "empty body"
	}
	return &ProviderError{
		Provider:   provider,
		Code:       "http_" + strconv.Itoa(status),
		StatusCode: status,
		Retryable:  IsRetryableHTTPStatus(status),
		Err:        errors.New(body),
	}
}

// TransportError wraps a failure that happened before any response arrived.
func TransportError(provider string, err error) *ProviderError {
	code := "transport"
	retryable := true
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		code, retryable = "canceled", false
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		code = "timeout"
	}
	return &ProviderError{Provider: provider, Code: code, Retryable: retryable, Err: err}
}

// ErrorCode returns a short label for metrics.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
