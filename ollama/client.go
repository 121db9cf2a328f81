// Package ollama wraps the official Ollama API client for single-prompt asks.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.1:latest"
)

type Client struct {
	client *api.Client
	model  string
}

// ChunkCallback receives each content fragment of a chat response.
type ChunkCallback func(chunk string) error

// Options are the generation knobs forwarded as Ollama model options.
type Options struct {
	Temperature *float64
	NumPredict  int
}

func (o Options) toMap() map[string]any {
	m := map[string]any{}
	if o.Temperature != nil {
		m["temperature"] = *o.Temperature
	}
	if o.NumPredict > 0 {
		m["num_predict"] = o.NumPredict
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// NewClient creates a client for baseURL. httpClient may carry extra
// headers (e.g. a bearer token for a proxied server); nil uses http.DefaultClient.
func NewClient(baseURL, model string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client: api.NewClient(parsedURL, httpClient),
		model:  model,
	}, nil
}

// NewChatRequest builds the /api/chat request for a single user prompt.
func (c *Client) NewChatRequest(prompt string, opts Options, stream bool) *api.ChatRequest {
	return &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Options: opts.toMap(),
	}
}

// Chat sends req and calls callback for every response fragment until the
// server reports done. Non-streaming requests produce a single fragment.
func (c *Client) Chat(ctx context.Context, req *api.ChatRequest, callback ChunkCallback) error {
	return c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if callback == nil || resp.Message.Content == "" {
			return nil
		}
		return callback(resp.Message.Content)
	})
}

// ListModels returns the names of the locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	names := make([]string, len(resp.Models))
	for i, m := range resp.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

// Ping checks that the server answers within five seconds.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
