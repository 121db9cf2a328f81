package model

import (
	"context"
	"net/http"
)

// Provider abstracts one configured AI chat-completion backend (Grok, OpenAI,
// Anthropic, Gemini, Ollama, ...) behind a single ask contract.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the apiclient and
// handler packages use Provider without importing every adapter.
type Provider interface {
	// ID returns the provider id this adapter was created for (e.g. "openai").
	ID() string

	// ValidateToken checks that the required credential is present and plausible.
	ValidateToken() error

	// PrepareHeaders returns the provider-specific HTTP headers for a request.
	PrepareHeaders() http.Header

	// PrepareRequestData returns the JSON-serializable request body for a prompt.
	PrepareRequestData(prompt string, opts AskOptions) any

	// Ask sends a prompt and returns the full answer. When opts.Stream is set and
	// opts.Callback is non-nil, incremental chunks are delivered to the callback
	// as they arrive and the accumulated text is returned at the end.
	Ask(ctx context.Context, prompt string, opts AskOptions) (string, error)

	// FetchAvailableModels lists the models the provider exposes.
	FetchAvailableModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the model name used for API calls.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// DisplayName returns the human-readable provider name.
	DisplayName() string
}

// StreamCallback is called for each chunk of a streamed response.
// Returning an error aborts the stream.
type StreamCallback func(chunk string) error

// AskOptions carries the per-request knobs shared by every provider.
type AskOptions struct {
	Temperature *float64
	MaxTokens   int
	Stream      bool
	Callback    StreamCallback
}

// Streaming reports whether chunks should be delivered incrementally.
func (o AskOptions) Streaming() bool {
	return o.Stream && o.Callback != nil
}

// ModelInfo describes a single model available from a provider.
type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// AnswerSource identifies the configured instance that produced an answer.
type AnswerSource struct {
	InstanceID  string `json:"instance_id,omitempty"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	DisplayName string `json:"display_name,omitempty"`
}
