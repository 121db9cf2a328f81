package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"askai/model"
)

var curatedGeminiModels = []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash-lite"}

// GeminiProvider implements model.Provider for the Google Generative Language
// API. The key travels in the URL query, not in a header.
type GeminiProvider struct {
	*base
}

func NewGeminiProvider(meta ModelConfig, cfg Config) *GeminiProvider {
	return &GeminiProvider{base: newBase(meta, cfg)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// text concatenates the parts of every candidate.
func (r geminiResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, part := range c.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// PrepareHeaders implements model.Provider.
func (p *GeminiProvider) PrepareHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

// PrepareRequestData implements model.Provider.
func (p *GeminiProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	temp, maxTokens := p.temperature(opts), p.maxTokens(opts)
	if temp != nil || maxTokens > 0 {
		req.GenerationConfig = &geminiGenerationConfig{Temperature: temp, MaxOutputTokens: maxTokens}
	}
	return req
}

// endpoint builds models/{model}:{method} with the key (and extra query) appended.
func (p *GeminiProvider) endpoint(method string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", p.cfg.APIKey)
	return BuildAPIURL(p.cfg.BaseURL, "models/"+p.GetModel()+":"+method) + "?" + query.Encode()
}

// Ask implements model.Provider. Stream chunks are treated as incremental.
func (p *GeminiProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	client := p.cfg.httpClient()

	return p.ask(ctx, prompt, opts,
		func(ctx context.Context, prompt string, emit func(string) error) error {
			u := p.endpoint("streamGenerateContent", url.Values{"alt": {"sse"}})
			resp, err := doJSON(ctx, client, http.MethodPost, u, p.PrepareHeaders(), p.PrepareRequestData(prompt, opts))
			if err != nil {
				return err
			}
			return readSSE(resp, func(payload string) error {
				var chunk geminiResponse
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					return fmt.Errorf("error decoding stream chunk: %w", err)
				}
				return emit(chunk.text())
			})
		},
		func(ctx context.Context, prompt string) (string, error) {
			var out geminiResponse
			u := p.endpoint("generateContent", nil)
			if err := decodeJSON(ctx, client, http.MethodPost, u, p.PrepareHeaders(), p.PrepareRequestData(prompt, opts), &out); err != nil {
				return "", err
			}
			return out.text(), nil
		},
	)
}

// FetchAvailableModels implements model.Provider. Only models supporting
// generateContent are listed; a curated list is used when listing fails.
func (p *GeminiProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.fetchModels(ctx, func(ctx context.Context) ([]model.ModelInfo, bool, error) {
		var out struct {
			Models []struct {
				Name                       string   `json:"name"`
				DisplayName                string   `json:"displayName"`
				SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
			} `json:"models"`
		}

		u := BuildAPIURL(p.cfg.BaseURL, "models") + "?" + url.Values{"key": {p.cfg.APIKey}}.Encode()
		if err := decodeJSON(ctx, p.cfg.httpClient(), http.MethodGet, u, nil, nil, &out); err != nil || len(out.Models) == 0 {
			return p.modelInfos(curatedGeminiModels...), false, nil
		}

		models := make([]model.ModelInfo, 0, len(out.Models))
		for _, m := range out.Models {
			if !supportsGenerate(m.SupportedGenerationMethods) {
				continue
			}
			id := strings.TrimPrefix(m.Name, "models/")
			name := m.DisplayName
			if name == "" {
				name = id
			}
			models = append(models, model.ModelInfo{ID: id, Name: name, Provider: p.ID()})
		}
		return models, true, nil
	})
}

func supportsGenerate(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}
