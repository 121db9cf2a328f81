package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"askai/model"
)

const testOpenAIKey = "sk-test-0123456789abcdefghij"

func openAIChunk(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func openAICompletion(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, content)
}

// newOpenAIServer answers chat completions with chunks (streaming) or their
// concatenation (non-streaming).
func newOpenAIServer(t *testing.T, check func(r *http.Request, body map[string]any), chunks ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body := decodeBody(t, r)
		if check != nil {
			check(r, body)
		}

		if stream, _ := body["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			payloads := make([]string, 0, len(chunks)+1)
			for _, c := range chunks {
				payloads = append(payloads, openAIChunk(c))
			}
			writeSSE(w, append(payloads, "[DONE]")...)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openAICompletion(strings.Join(chunks, "")))
	}))
}

func TestOpenAICompatStreamMatchesNonStream(t *testing.T) {
	srv := newOpenAIServer(t, func(r *http.Request, body map[string]any) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+testOpenAIKey {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if body["model"] != "grok-4-latest" {
			t.Errorf("unexpected model: %v", body["model"])
		}
	}, "Dune ", "is about ", "spice.")
	defer srv.Close()

	p, err := CreateModel(ProviderTypeGrok, Config{BaseURL: srv.URL + "/v1", APIKey: testOpenAIKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	full, err := p.Ask(context.Background(), "What is Dune about?", model.AskOptions{})
	if err != nil {
		t.Fatalf("non-stream Ask failed: %v", err)
	}

	rec := &chunkRecorder{}
	streamed, err := p.Ask(context.Background(), "What is Dune about?", streamOpts(rec))
	if err != nil {
		t.Fatalf("stream Ask failed: %v", err)
	}

	if full != "Dune is about spice." {
		t.Errorf("unexpected answer: %q", full)
	}
	if streamed != full || rec.joined() != full {
		t.Errorf("stream mismatch: returned %q, chunks %q, want %q", streamed, rec.joined(), full)
	}
	if rec.count() != 3 {
		t.Errorf("expected 3 chunks, got %d", rec.count())
	}
}

func TestOpenAICompatRequestOptions(t *testing.T) {
	srv := newOpenAIServer(t, func(r *http.Request, body map[string]any) {
		if body["temperature"] != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", body["temperature"])
		}
		if body["max_tokens"] != float64(256) {
			t.Errorf("expected max_tokens 256, got %v", body["max_tokens"])
		}
	}, "ok")
	defer srv.Close()

	temp := 0.7
	p, err := CreateModel(ProviderTypeOpenAI, Config{BaseURL: srv.URL + "/v1", APIKey: testOpenAIKey, Temperature: &temp, MaxTokens: 256})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	override := 0.2
	if _, err := p.Ask(context.Background(), "hi", model.AskOptions{Temperature: &override}); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
}

func TestOpenRouterHeaders(t *testing.T) {
	srv := newOpenAIServer(t, func(r *http.Request, body map[string]any) {
		if r.Header.Get("X-Title") != "askai" {
			t.Errorf("missing X-Title header")
		}
		if r.Header.Get("HTTP-Referer") == "" {
			t.Errorf("missing HTTP-Referer header")
		}
	}, "ok")
	defer srv.Close()

	p, err := CreateModel(ProviderTypeOpenRouter, Config{BaseURL: srv.URL + "/api/v1", APIKey: testOpenAIKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}
	if _, err := p.Ask(context.Background(), "hi", model.AskOptions{}); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
}

func TestCustomProviderAddsV1(t *testing.T) {
	var gotPath atomic.Value
	srv := newOpenAIServer(t, func(r *http.Request, body map[string]any) {
		gotPath.Store(r.URL.Path)
	}, "local answer")
	defer srv.Close()

	p, err := CreateModel(ProviderTypeCustom, Config{BaseURL: srv.URL, Model: "local-model"})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	answer, err := p.Ask(context.Background(), "hi", model.AskOptions{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "local answer" {
		t.Errorf("unexpected answer %q", answer)
	}
	if gotPath.Load() != "/v1/chat/completions" {
		t.Errorf("expected /v1/chat/completions, got %v", gotPath.Load())
	}
}

func TestOpenAICompatHTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType string
	}{
		{"unauthorized", http.StatusUnauthorized, ErrorTypeAuth},
		{"forbidden", http.StatusForbidden, ErrorTypeAuth},
		{"server error", http.StatusInternalServerError, ErrorTypeAPI},
		{"bad request", http.StatusBadRequest, ErrorTypeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
			}))
			defer srv.Close()

			p, err := CreateModel(ProviderTypeOpenAI, Config{BaseURL: srv.URL + "/v1", APIKey: testOpenAIKey})
			if err != nil {
				t.Fatalf("CreateModel failed: %v", err)
			}

			_, err = p.Ask(context.Background(), "hi", model.AskOptions{})
			assertAPIError(t, err, tt.wantType, tt.status)
		})
	}
}

func TestDeepSeekRetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("server does not support hijacking")
				return
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openAICompletion("recovered"))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(mustLookup(t, ProviderTypeDeepSeek), Config{BaseURL: srv.URL, APIKey: testOpenAIKey})
	p.retry.InitialBackoff = time.Millisecond

	answer, err := p.Ask(context.Background(), "hi", model.AskOptions{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("unexpected answer %q", answer)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestDeepSeekDoesNotRetryHTTPErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(mustLookup(t, ProviderTypeDeepSeek), Config{BaseURL: srv.URL, APIKey: testOpenAIKey})
	p.retry.InitialBackoff = time.Millisecond

	_, err := p.Ask(context.Background(), "hi", model.AskOptions{})
	assertAPIError(t, err, ErrorTypeAPI, http.StatusInternalServerError)
	if calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", calls.Load())
	}
}

func TestOpenAICompatFetchModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o","object":"model","created":1,"owned_by":"openai"},{"id":"gpt-4o-mini","object":"model","created":1,"owned_by":"openai"}]}`)
	}))
	defer srv.Close()

	p, err := CreateModel(ProviderTypeOpenAI, Config{BaseURL: srv.URL + "/v1", APIKey: testOpenAIKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	models, err := p.FetchAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableModels failed: %v", err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4o" || models[1].Provider != "openai" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestPerplexityFallsBackToCuratedModels(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, err := CreateModel(ProviderTypePerplexity, Config{BaseURL: srv.URL, APIKey: "pplx-0123456789"})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	models, err := p.FetchAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableModels failed: %v", err)
	}
	if len(models) != len(curatedPerplexityModels) || models[0].ID != "sonar" {
		t.Errorf("unexpected models: %+v", models)
	}
}
