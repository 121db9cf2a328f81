package provider

import (
	"context"
	"net/http"

	"askai/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// curatedPerplexityModels is served when /models is not available.
var curatedPerplexityModels = []string{"sonar", "sonar-pro", "sonar-reasoning", "sonar-reasoning-pro", "sonar-deep-research"}

// OpenAICompatProvider implements model.Provider for every backend that speaks
// the OpenAI chat-completions protocol: grok, openai, deepseek, nvidia,
// openrouter, perplexity and custom endpoints.
type OpenAICompatProvider struct {
	*base
	client openai.Client
	retry  retryPolicy
}

// NewOpenAICompatProvider creates a provider for an OpenAI-compatible backend.
// Registry defaults fill an empty base URL or model.
func NewOpenAICompatProvider(meta ModelConfig, cfg Config) *OpenAICompatProvider {
	p := &OpenAICompatProvider{base: newBase(meta, cfg)}

	// The SDK appends "chat/completions" and "models" itself, so the base
	// must end where those paths begin. Custom endpoints are often given as
	// a bare host.
	baseURL := p.cfg.BaseURL
	if meta.ID == ProviderTypeCustom {
		baseURL = BuildAPIURL(baseURL, "v1")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(p.cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(p.cfg.httpClient()),
	}
	if p.cfg.APIKey == "" {
		opts = append(opts, option.WithHeaderDel("Authorization"))
	}
	for k, vs := range p.PrepareHeaders() {
		if k == "Authorization" || k == "Content-Type" {
			continue
		}
		for _, v := range vs {
			opts = append(opts, option.WithHeaderAdd(k, v))
		}
	}

	p.client = openai.NewClient(opts...)

	if meta.ID == ProviderTypeDeepSeek {
		p.retry = deepSeekRetry
	} else {
		p.retry = retryPolicy{Attempts: 1}
	}
	return p
}

// PrepareHeaders implements model.Provider.
func (p *OpenAICompatProvider) PrepareHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	if p.meta.ID == ProviderTypeOpenRouter {
		h.Set("HTTP-Referer", "https://github.com/askai/askai")
		h.Set("X-Title", "askai")
	}
	return h
}

// PrepareRequestData implements model.Provider. It returns the
// openai.ChatCompletionNewParams sent for prompt.
func (p *OpenAICompatProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	return p.params(prompt, opts)
}

func (p *OpenAICompatProvider) params(prompt string, opts model.AskOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.GetModel()),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if t := p.temperature(opts); t != nil {
		params.Temperature = openai.Float(*t)
	}
	if n := p.maxTokens(opts); n > 0 {
		params.MaxTokens = openai.Int(int64(n))
	}
	return params
}

// Ask implements model.Provider.
func (p *OpenAICompatProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	return p.ask(ctx, prompt, opts,
		func(ctx context.Context, prompt string, emit func(string) error) error {
			emitted := false
			track := func(chunk string) error {
				if chunk != "" {
					emitted = true
				}
				return emit(chunk)
			}
			return p.retry.do(ctx, p.ID(), func() bool { return emitted }, func() error {
				return p.stream(ctx, p.params(prompt, opts), track)
			})
		},
		func(ctx context.Context, prompt string) (string, error) {
			var answer string
			err := p.retry.do(ctx, p.ID(), func() bool { return false }, func() error {
				resp, err := p.client.Chat.Completions.New(ctx, p.params(prompt, opts))
				if err != nil {
					return err
				}
				if len(resp.Choices) > 0 {
					answer = resp.Choices[0].Message.Content
				}
				return nil
			})
			return answer, err
		},
	)
}

func (p *OpenAICompatProvider) stream(ctx context.Context, params openai.ChatCompletionNewParams, emit func(string) error) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if err := emit(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	return stream.Err()
}

// FetchAvailableModels implements model.Provider using GET {base}/models.
// Perplexity has no listing endpoint and falls back to a curated list.
func (p *OpenAICompatProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.fetchModels(ctx, func(ctx context.Context) ([]model.ModelInfo, bool, error) {
		page, err := p.client.Models.List(ctx)
		if err != nil {
			if p.meta.ID == ProviderTypePerplexity {
				return p.modelInfos(curatedPerplexityModels...), false, nil
			}
			return nil, false, err
		}

		ids := make([]string, 0, len(page.Data))
		for _, m := range page.Data {
			ids = append(ids, m.ID)
		}
		return p.modelInfos(ids...), true, nil
	})
}
