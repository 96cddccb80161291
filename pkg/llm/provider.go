package llm

import (
	"context"
)

// NotConfiguredAnswer is what an unconfigured backend answers with.
const NotConfiguredAnswer = "LLM API Key not configured."

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// TokenHandler receives streamed fragments in order. Returning an error stops
// the stream and that error is returned from ChatStream.
type TokenHandler func(fragment string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream is Chat with the answer delivered fragment by fragment as the
	// backend produces it.
	ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) error

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// Unconfigured stands in when no backend credentials are set. It answers every
// request with NotConfiguredAnswer instead of failing.
type Unconfigured struct{}

var _ LLMProvider = Unconfigured{}

func (Unconfigured) Chat(context.Context, []Message, ...Option) (string, error) {
	return NotConfiguredAnswer, nil
}

func (Unconfigured) ChatStream(_ context.Context, _ []Message, onToken TokenHandler, _ ...Option) error {
	return onToken(NotConfiguredAnswer)
}

func (Unconfigured) Generate(context.Context, string, ...Option) (string, error) {
	return NotConfiguredAnswer, nil
}
