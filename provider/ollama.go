package provider

import (
	"context"
	"net/http"
	"strings"

	"askai/model"
	"askai/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
type OllamaProvider struct {
	*base
	client *ollama.Client
}

// NewOllamaProvider creates an Ollama provider. An optional API key is sent
// as a bearer token for servers behind an authenticating proxy.
func NewOllamaProvider(meta ModelConfig, cfg Config) (*OllamaProvider, error) {
	p := &OllamaProvider{base: newBase(meta, cfg)}

	httpClient := p.cfg.httpClient()
	if extra := p.PrepareHeaders(); len(extra) > 0 {
		clone := *httpClient
		clone.Transport = &headerTransport{base: httpClient.Transport, header: extra}
		httpClient = &clone
	}

	client, err := ollama.NewClient(p.cfg.BaseURL, p.cfg.Model, httpClient)
	if err != nil {
		return nil, NewConfigError(p.cfg.Language, err.Error())
	}
	p.client = client
	return p, nil
}

// SetModel keeps the wrapped client in sync.
func (p *OllamaProvider) SetModel(m string) {
	p.base.SetModel(m)
	p.client.SetModel(m)
}

// PrepareHeaders implements model.Provider. Only the optional bearer token
// is returned; the api client sets content headers itself.
func (p *OllamaProvider) PrepareHeaders() http.Header {
	h := http.Header{}
	if p.cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	return h
}

func (p *OllamaProvider) options(opts model.AskOptions) ollama.Options {
	return ollama.Options{Temperature: p.temperature(opts), NumPredict: p.maxTokens(opts)}
}

// PrepareRequestData implements model.Provider. It returns the *api.ChatRequest
// sent to /api/chat.
func (p *OllamaProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	return p.client.NewChatRequest(prompt, p.options(opts), opts.Streaming())
}

// Ask implements model.Provider.
func (p *OllamaProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	return p.ask(ctx, prompt, opts,
		func(ctx context.Context, prompt string, emit func(string) error) error {
			return p.client.Chat(ctx, p.client.NewChatRequest(prompt, p.options(opts), true), emit)
		},
		func(ctx context.Context, prompt string) (string, error) {
			var b strings.Builder
			err := p.client.Chat(ctx, p.client.NewChatRequest(prompt, p.options(opts), false), func(chunk string) error {
				b.WriteString(chunk)
				return nil
			})
			return b.String(), err
		},
	)
}

// Ping implements Pinger by listing the installed models.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return p.wrap(err)
	}
	return nil
}

// FetchAvailableModels implements model.Provider via /api/tags.
func (p *OllamaProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.fetchModels(ctx, func(ctx context.Context) ([]model.ModelInfo, bool, error) {
		names, err := p.client.ListModels(ctx)
		if err != nil {
			return nil, false, err
		}
		return p.modelInfos(names...), true, nil
	})
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base   http.RoundTripper
	header http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, vs := range t.header {
		req.Header[k] = vs
	}

	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}
