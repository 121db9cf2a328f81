// Package provider implements the AI chat-completion backends askai can talk to.
//
// Every backend satisfies model.Provider: given a prompt it validates its
// credential, builds the vendor-specific headers and body, sends the request and
// returns the answer, optionally streaming incremental chunks to a callback.
//
// # Architecture
//
//   - model.Provider defines the contract (interface)
//   - registry.go holds static per-provider metadata (ModelConfig)
//   - OpenAICompatProvider serves grok, openai, deepseek, nvidia, openrouter,
//     perplexity and custom endpoints through the openai-go SDK
//   - AnthropicProvider uses anthropic-sdk-go
//   - OllamaProvider wraps the ollama package
//   - GeminiProvider and NvidiaFreeProvider speak raw HTTP + SSE
//   - CreateModel() builds and validates a provider from Config
//
// # Usage
//
//	p, err := provider.CreateModel(provider.ProviderTypeOpenAI, provider.Config{
//	    APIKey: "sk-...",
//	    Model:  "gpt-4o-mini",
//	})
//	if err != nil {
//	    // handle error (*AIAPIError)
//	}
//	answer, err := p.Ask(ctx, prompt, model.AskOptions{Stream: true, Callback: printChunk})
package provider

import (
	"context"
	"net/http"
	"time"
)

// Note: The Provider interface and StreamCallback are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// Pinger is implemented by providers that can check that their server is
// reachable without spending a completion.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeGrok       ProviderType = "grok"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeGemini     ProviderType = "gemini"
	ProviderTypeDeepSeek   ProviderType = "deepseek"
	ProviderTypeNvidia     ProviderType = "nvidia"
	ProviderTypeNvidiaFree ProviderType = "nvidia_free"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypePerplexity ProviderType = "perplexity"
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeCustom     ProviderType = "custom"
)

// Default timeouts applied when Config leaves them zero.
const (
	DefaultRequestTimeout = 120 * time.Second
	DefaultStallTimeout   = 60 * time.Second
)

// Config holds the configuration of one provider instance.
type Config struct {
	Type        ProviderType
	BaseURL     string
	Model       string
	APIKey      string
	DisplayName string // overrides the registry display name

	Temperature *float64
	MaxTokens   int

	// RequestTimeout bounds non-streaming requests; StallTimeout is the
	// longest a stream may stay silent before recovery kicks in.
	RequestTimeout time.Duration
	StallTimeout   time.Duration

	// Language selects the translation of user-facing error messages.
	Language string

	// UserID identifies this installation to the nvidia_free proxy.
	UserID string

	// HTTPClient is used for every request when set (tests, proxies).
	HTTPClient *http.Client
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}

func (c Config) stallTimeout() time.Duration {
	if c.StallTimeout <= 0 {
		return DefaultStallTimeout
	}
	return c.StallTimeout
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
