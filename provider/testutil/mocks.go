package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"askai/model"
)

// MockProvider implements model.Provider for testing
type MockProvider struct {
	// Configurable responses
	AskFunc        func(ctx context.Context, prompt string, opts model.AskOptions) (string, error)
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	ValidateFunc   func() error

	// State
	id           string
	currentModel string

	mu      sync.Mutex
	prompts []string
}

// NewMockProvider creates a mock provider that answers "Mock response",
// streamed as two chunks when a callback is given.
func NewMockProvider(id, modelName string) *MockProvider {
	mock := &MockProvider{
		id:           id,
		currentModel: modelName,
	}
	mock.AskFunc = mock.defaultAsk
	mock.ListModelsFunc = mock.defaultListModels
	mock.ValidateFunc = func() error { return nil }
	return mock
}

// ChunkedAnswer returns an AskFunc that streams chunks and returns their
// concatenation.
func ChunkedAnswer(chunks ...string) func(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	return func(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
		if opts.Streaming() {
			for _, c := range chunks {
				if err := opts.Callback(c); err != nil {
					return "", err
				}
			}
		}
		return strings.Join(chunks, ""), nil
	}
}

func (m *MockProvider) defaultAsk(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	return ChunkedAnswer("Mock ", "response")(ctx, prompt, opts)
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{ID: "mock-model-1", Name: "mock-model-1", Provider: m.id},
		{ID: "mock-model-2", Name: "mock-model-2", Provider: m.id},
	}, nil
}

func (m *MockProvider) ID() string {
	return m.id
}

func (m *MockProvider) ValidateToken() error {
	return m.ValidateFunc()
}

func (m *MockProvider) PrepareHeaders() http.Header {
	return http.Header{"Content-Type": {"application/json"}}
}

func (m *MockProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	return map[string]any{"model": m.currentModel, "prompt": prompt}
}

func (m *MockProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.AskFunc(ctx, prompt, opts)
}

// Prompts returns every prompt received so far.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) DisplayName() string {
	return "Mock " + m.id
}
