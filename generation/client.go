// Package generation wraps the external text generation service. Every
// pipeline step that needs model output goes through a Generator so tests can
// substitute a deterministic stub.
package generation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/config"
)

// Generator turns a prompt into raw model text. Implementations make exactly one
// outbound call per invocation and never retry internally.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt)
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type unavailable struct{}

func (unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Unavailable returns a Generator whose every call fails with ErrUnavailable
func Unavailable() Generator {
	return unavailable{}
}

// NewClient builds the process-wide generator. A missing credential degrades to
// the unavailable stub so the rest of the service keeps serving.
func NewClient(conf *config.Config) Generator {
	apiKey := strings.TrimSpace(conf.AnthropicAPIKey)
	if apiKey == "" {
		zap.S().Warnw("ANTHROPIC_API_KEY not configured, generation features are disabled")
		return Unavailable()
	}
	return NewAnthropicClient(newAnthropicClient(apiKey), conf)
}
