package provider

import (
	"context"
	"net/http"
	"strings"

	"askai/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicVersion is the API version header the SDK sends.
const anthropicVersion = "2023-06-01"

// defaultAnthropicMaxTokens is used when neither the request nor the instance
// sets one; the Messages API requires it.
const defaultAnthropicMaxTokens = 4096

// curatedClaudeModels is served when the models endpoint cannot be reached.
var curatedClaudeModels = []string{
	string(anthropic.ModelClaudeSonnet4_5_20250929),
	"claude-opus-4-1-20250805",
	"claude-sonnet-4-20250514",
	"claude-3-5-haiku-20241022",
}

// AnthropicProvider implements model.Provider using Anthropic's official SDK.
type AnthropicProvider struct {
	*base
	client anthropic.Client
}

// NewAnthropicProvider creates an Anthropic provider instance.
func NewAnthropicProvider(meta ModelConfig, cfg Config) *AnthropicProvider {
	p := &AnthropicProvider{base: newBase(meta, cfg)}
	p.client = anthropic.NewClient(
		option.WithBaseURL(p.cfg.BaseURL),
		option.WithAPIKey(p.cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(p.cfg.httpClient()),
	)
	return p
}

// PrepareHeaders implements model.Provider.
func (p *AnthropicProvider) PrepareHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Api-Key", p.cfg.APIKey)
	h.Set("Anthropic-Version", anthropicVersion)
	return h
}

// PrepareRequestData implements model.Provider. It returns the
// anthropic.MessageNewParams sent for prompt.
func (p *AnthropicProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	return p.params(prompt, opts)
}

func (p *AnthropicProvider) params(prompt string, opts model.AskOptions) anthropic.MessageNewParams {
	maxTokens := p.maxTokens(opts)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.GetModel()),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if t := p.temperature(opts); t != nil {
		params.Temperature = anthropic.Float(*t)
	}
	return params
}

// Ask implements model.Provider.
func (p *AnthropicProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	return p.ask(ctx, prompt, opts,
		func(ctx context.Context, prompt string, emit func(string) error) error {
			stream := p.client.Messages.NewStreaming(ctx, p.params(prompt, opts))
			defer stream.Close()

			for stream.Next() {
				event := stream.Current()
				switch ev := event.AsAny().(type) {
				case anthropic.ContentBlockDeltaEvent:
					if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
						if err := emit(delta.Text); err != nil {
							return err
						}
					}
				case anthropic.MessageStopEvent:
					return stream.Err()
				}
			}
			return stream.Err()
		},
		func(ctx context.Context, prompt string) (string, error) {
			msg, err := p.client.Messages.New(ctx, p.params(prompt, opts))
			if err != nil {
				return "", err
			}

			var b strings.Builder
			for _, block := range msg.Content {
				if block.Type == "text" {
					b.WriteString(block.Text)
				}
			}
			return b.String(), nil
		},
	)
}

// FetchAvailableModels implements model.Provider. A curated list is returned
// when the models endpoint fails.
func (p *AnthropicProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.fetchModels(ctx, func(ctx context.Context) ([]model.ModelInfo, bool, error) {
		page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
		if err != nil || len(page.Data) == 0 {
			return p.modelInfos(curatedClaudeModels...), false, nil
		}

		out := make([]model.ModelInfo, 0, len(page.Data))
		for _, m := range page.Data {
			name := m.DisplayName
			if name == "" {
				name = m.ID
			}
			out = append(out, model.ModelInfo{ID: m.ID, Name: name, Provider: p.ID()})
		}
		return out, true, nil
	})
}
