package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// ErrUnavailable is returned by every call when no credential was configured.
// It is permanent for the life of the process.
var ErrUnavailable = errors.New("generation service is not configured")

// Failure categories
const (
	CategoryTimeout       = "timeout"
	CategoryCanceled      = "canceled"
	CategoryRateLimit     = "rate_limit"
	CategoryServer        = "server"
	CategoryClient        = "client"
	CategoryTransport     = "transport"
	CategoryEmptyResponse = "empty_response"
)

// Failure is a call-time error from the generation service. It is considered
// transient; callers decide whether a later retry makes sense.
type Failure struct {
	Category string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("generation failed: %s", f.Category)
	}
	return fmt.Sprintf("generation failed (%s): %v", f.Category, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether repeating the same call later could succeed
func (f *Failure) Retryable() bool {
	switch f.Category {
	case CategoryClient, CategoryCanceled:
		return false
	}
	return true
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CategoryTimeout
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return CategoryRateLimit
		case apiErr.StatusCode >= 500:
			return CategoryServer
		case apiErr.StatusCode >= 400:
			return CategoryClient
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return CategoryRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return CategoryServer
	case strings.Contains(msg, "status code: 4"):
		return CategoryClient
	default:
		return CategoryTransport
	}
}
