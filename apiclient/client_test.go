package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"askai/config"
	"askai/model"
	"askai/provider"
	"askai/provider/testutil"
)

// fakeFactory hands out mock providers and records what it was asked to build.
type fakeFactory struct {
	mu      sync.Mutex
	calls   []provider.ProviderType
	configs []provider.Config
	mocks   map[provider.ProviderType]*testutil.MockProvider
	fail    map[provider.ProviderType]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		mocks: make(map[provider.ProviderType]*testutil.MockProvider),
		fail:  make(map[provider.ProviderType]error),
	}
}

func (f *fakeFactory) create(id provider.ProviderType, cfg provider.Config) (model.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, id)
	f.configs = append(f.configs, cfg)
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	m, ok := f.mocks[id]
	if !ok {
		m = testutil.NewMockProvider(string(id), cfg.Model)
		f.mocks[id] = m
	}
	return m, nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	return cfg
}

func addInstance(t *testing.T, cfg *config.Config, inst config.ModelInstance, key string) string {
	t.Helper()
	id, err := cfg.AddModel(inst, key)
	if err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	return id
}

func assertErrorType(t *testing.T, err error, want string) *provider.AIAPIError {
	t.Helper()
	var apiErr *provider.AIAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *AIAPIError, got %T: %v", err, err)
	}
	if apiErr.Type != want {
		t.Errorf("error type = %s, want %s (%s)", apiErr.Type, want, apiErr.Message)
	}
	return apiErr
}

func TestAskCreatesProviderLazily(t *testing.T) {
	cfg := newTestConfig(t)
	addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o-mini"}, "sk-test-key-0123456789")

	f := newFakeFactory()
	c := NewWithFactory(cfg, f.create)
	if f.callCount() != 0 {
		t.Fatal("provider must not be created before first use")
	}

	for i := 0; i < 3; i++ {
		answer, err := c.Ask(context.Background(), "Who is Paul?", model.AskOptions{})
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if answer != "Mock response" {
			t.Errorf("answer = %q", answer)
		}
	}
	if f.callCount() != 1 {
		t.Errorf("expected one provider creation, got %d", f.callCount())
	}

	c.Reload()
	if _, err := c.Ask(context.Background(), "again", model.AskOptions{}); err != nil {
		t.Fatal(err)
	}
	if f.callCount() != 2 {
		t.Errorf("Reload must force a new provider, got %d creations", f.callCount())
	}
}

func TestProviderConfigFromInstance(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.User.Language = "de"
	cfg.User.RequestTimeout = 30
	cfg.User.StallTimeout = 5

	temp := 0.2
	id := addInstance(t, cfg, config.ModelInstance{
		Provider:    "custom",
		DisplayName: "Local LLM",
		APIBaseURL:  "http://localhost:8080",
		Model:       "qwen",
		Temperature: &temp,
		MaxTokens:   512,
	}, "local-key")

	c := NewWithFactory(cfg, newFakeFactory().create)
	typ, pc, err := c.ProviderConfig(id)
	if err != nil {
		t.Fatalf("ProviderConfig failed: %v", err)
	}

	if typ != provider.ProviderTypeCustom || pc.BaseURL != "http://localhost:8080" || pc.Model != "qwen" {
		t.Errorf("unexpected config: %s %+v", typ, pc)
	}
	if pc.APIKey != "local-key" || pc.DisplayName != "Local LLM" || pc.MaxTokens != 512 || *pc.Temperature != 0.2 {
		t.Errorf("instance fields not copied: %+v", pc)
	}
	if pc.RequestTimeout != 30*time.Second || pc.StallTimeout != 5*time.Second {
		t.Errorf("timeouts not taken from config: %v %v", pc.RequestTimeout, pc.StallTimeout)
	}
	if pc.Language != "de" && pc.Language != cfg.Language() {
		t.Errorf("language = %q", pc.Language)
	}
	if pc.UserID != "" {
		t.Error("only nvidia_free gets a user id")
	}

	if _, _, err := c.ProviderConfig("missing"); err == nil {
		t.Error("expected error for unknown instance")
	}
}

func TestNvidiaFreeGetsPersistentUserID(t *testing.T) {
	cfg := newTestConfig(t)
	id := addInstance(t, cfg, config.ModelInstance{Provider: "nvidia_free"}, "")

	c := NewWithFactory(cfg, newFakeFactory().create)
	_, first, err := c.ProviderConfig(id)
	if err != nil {
		t.Fatal(err)
	}
	_, second, _ := c.ProviderConfig(id)

	if first.UserID == "" || first.UserID != second.UserID {
		t.Errorf("user id must be generated once: %q vs %q", first.UserID, second.UserID)
	}
}

func TestAskStreamHonoursInstanceSetting(t *testing.T) {
	tests := []struct {
		name       string
		streaming  bool
		wantChunks []string
	}{
		{"streaming enabled", true, []string{"It was ", "a dark night"}},
		{"streaming disabled", false, []string{"It was a dark night"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o", EnableStreaming: tt.streaming}, "sk-test-key-0123456789")

			f := newFakeFactory()
			mock := testutil.NewMockProvider("openai", "gpt-4o")
			chunked := testutil.ChunkedAnswer("It was ", "a dark night")
			mock.AskFunc = func(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
				if opts.Streaming() != tt.streaming {
					t.Errorf("provider streaming = %v, want %v", opts.Streaming(), tt.streaming)
				}
				return chunked(ctx, prompt, opts)
			}
			f.mocks[provider.ProviderTypeOpenAI] = mock

			var got []string
			cb := func(chunk string) error {
				got = append(got, chunk)
				return nil
			}

			answer, err := NewWithFactory(cfg, f.create).AskStream(context.Background(), "Opening?", cb, model.AskOptions{})
			if err != nil {
				t.Fatalf("AskStream failed: %v", err)
			}
			if answer != "It was a dark night" {
				t.Errorf("answer = %q", answer)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.wantChunks) {
				t.Errorf("chunks = %q, want %q", got, tt.wantChunks)
			}
		})
	}
}

func TestEmptyAnswerIsAPIError(t *testing.T) {
	cfg := newTestConfig(t)
	addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o"}, "sk-test-key-0123456789")

	f := newFakeFactory()
	mock := testutil.NewMockProvider("openai", "gpt-4o")
	mock.AskFunc = testutil.ChunkedAnswer("  ", "\n")
	f.mocks[provider.ProviderTypeOpenAI] = mock

	_, err := NewWithFactory(cfg, f.create).Ask(context.Background(), "q", model.AskOptions{})
	apiErr := assertErrorType(t, err, provider.ErrorTypeAPI)
	if apiErr.Message != "Mock openai returned an empty answer" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestFallbackToGrok(t *testing.T) {
	t.Setenv("ASKAI_GROK_API_KEY", "xai-test-key-0123456789")
	cfg := newTestConfig(t)

	f := newFakeFactory()
	c := NewWithFactory(cfg, f.create)

	answer, err := c.Ask(context.Background(), "q", model.AskOptions{})
	if err != nil {
		t.Fatalf("expected grok fallback, got %v", err)
	}
	if answer != "Mock response" {
		t.Errorf("answer = %q", answer)
	}
	if len(f.calls) != 1 || f.calls[0] != provider.ProviderTypeGrok {
		t.Errorf("expected grok to be built, got %v", f.calls)
	}
	if f.configs[0].APIKey != "xai-test-key-0123456789" {
		t.Errorf("fallback must use the environment key, got %q", f.configs[0].APIKey)
	}

	info, err := c.CurrentModelInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Provider != "grok" || info.InstanceID != "" {
		t.Errorf("unexpected model info: %+v", info)
	}
}

func TestFallbackFailureReturnsOriginalError(t *testing.T) {
	cfg := newTestConfig(t)

	f := newFakeFactory()
	f.fail[provider.ProviderTypeGrok] = provider.NewConfigError("en", "grok key missing")

	_, err := NewWithFactory(cfg, f.create).Ask(context.Background(), "q", model.AskOptions{})
	apiErr := assertErrorType(t, err, provider.ErrorTypeConfig)
	if apiErr.Message != `No AI model is selected. Add one with "askai models add".` {
		t.Errorf("expected the original error, got %q", apiErr.Message)
	}
}

func TestBrokenSelectedInstanceFallsBack(t *testing.T) {
	t.Setenv("ASKAI_GROK_API_KEY", "xai-test-key-0123456789")
	cfg := newTestConfig(t)
	addInstance(t, cfg, config.ModelInstance{Provider: "openai"}, "")

	f := newFakeFactory()
	f.fail[provider.ProviderTypeOpenAI] = provider.NewConfigError("en", "OpenAI API key is not configured")

	if _, err := NewWithFactory(cfg, f.create).Ask(context.Background(), "q", model.AskOptions{}); err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if len(f.calls) != 2 || f.calls[1] != provider.ProviderTypeGrok {
		t.Errorf("expected openai then grok, got %v", f.calls)
	}
}

func TestAskWithSpecificInstance(t *testing.T) {
	cfg := newTestConfig(t)
	addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o"}, "sk-test-key-0123456789")
	second := addInstance(t, cfg, config.ModelInstance{Provider: "anthropic", Model: "claude-sonnet-4-5"}, "sk-ant-test-key-0123456789")

	f := newFakeFactory()
	c := NewWithFactory(cfg, f.create)

	if _, err := c.AskWith(context.Background(), second, "q", model.AskOptions{}); err != nil {
		t.Fatalf("AskWith failed: %v", err)
	}
	if f.calls[0] != provider.ProviderTypeAnthropic {
		t.Errorf("expected anthropic, got %v", f.calls)
	}

	info, err := c.ModelInfo(second)
	if err != nil {
		t.Fatal(err)
	}
	if info.InstanceID != second || info.Model != "claude-sonnet-4-5" {
		t.Errorf("unexpected info: %+v", info)
	}

	_, err = c.AskWith(context.Background(), "deadbeef", "q", model.AskOptions{})
	assertErrorType(t, err, provider.ErrorTypeConfig)
	for _, id := range f.calls {
		if id == provider.ProviderTypeGrok {
			t.Error("an explicit instance must never fall back")
		}
	}
}

func TestFetchModels(t *testing.T) {
	cfg := newTestConfig(t)
	id := addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o"}, "sk-test-key-0123456789")

	models, err := NewWithFactory(cfg, newFakeFactory().create).FetchModels(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0].ID != "mock-model-1" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestTestConnectionAgainstServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"local-model","choices":[{"index":0,"message":{"role":"assistant","content":"OK"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`)
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	id := addInstance(t, cfg, config.ModelInstance{Provider: "custom", APIBaseURL: srv.URL, Model: "local-model"}, "")

	answer, err := New(cfg).TestConnection(context.Background(), id)
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if answer != "OK" || calls.Load() != 1 {
		t.Errorf("answer = %q after %d calls", answer, calls.Load())
	}
}

func TestTestConnectionReportsConfigErrors(t *testing.T) {
	t.Setenv("ASKAI_OPENAI_API_KEY", "")
	cfg := newTestConfig(t)
	id := addInstance(t, cfg, config.ModelInstance{Provider: "openai", Model: "gpt-4o"}, "short")

	_, err := New(cfg).TestConnection(context.Background(), id)
	assertErrorType(t, err, provider.ErrorTypeConfig)
}

func TestTestConnectionPingsOllamaFirst(t *testing.T) {
	var chats atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat" {
			chats.Add(1)
		}
		http.Error(w, `{"error":"starting up"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	id := addInstance(t, cfg, config.ModelInstance{Provider: "ollama", APIBaseURL: srv.URL, Model: "llama3.1:latest"}, "")

	_, err := New(cfg).TestConnection(context.Background(), id)
	assertErrorType(t, err, provider.ErrorTypeAPI)
	if chats.Load() != 0 {
		t.Errorf("chat request sent after a failed ping")
	}
}
