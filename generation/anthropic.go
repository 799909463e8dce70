package generation

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/config"
)

const systemPrompt = "You are a careful clinical documentation assistant working for licensed doctors. Use only the patient data you are given and follow the requested output format exactly."

const defaultMaxTokens = 2048

// AnthropicMessager is the subset of the Anthropic SDK used here
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClientCreator builds a messager for an api key
type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicClient is the Generator backed by the Anthropic messages API
type AnthropicClient struct {
	messages  AnthropicMessager
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicClient returns a client using messages for transport and the
// model settings from conf
func NewAnthropicClient(messages AnthropicMessager, conf *config.Config) *AnthropicClient {
	c := &AnthropicClient{
		messages:  messages,
		model:     anthropic.ModelClaudeSonnet4_20250514,
		maxTokens: defaultMaxTokens,
		timeout:   conf.GenerationTimeout,
	}
	if m := strings.TrimSpace(conf.GenerationModel); m != "" {
		c.model = anthropic.Model(m)
	}
	if conf.GenerationMaxTokens > 0 {
		c.maxTokens = conf.GenerationMaxTokens
	}
	return c
}

// Generate sends prompt as a single user turn and returns the concatenated text
// blocks of the reply
func (a *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		f := &Failure{Category: classify(err), Err: err}
		zap.S().Warnw("generation call failed",
			"category", f.Category,
			"elapsed", time.Since(start),
			"error", err)
		return "", f
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", &Failure{Category: CategoryEmptyResponse}
	}
	zap.S().Debugw("generation call finished", "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}
