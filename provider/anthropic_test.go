package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"askai/model"
)

const testAnthropicKey = "sk-ant-REDACTED"

func anthropicEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func newAnthropicServer(t *testing.T, chunks ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != testAnthropicKey {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("Anthropic-Version") == "" {
			t.Errorf("missing anthropic-version header")
		}

		body := decodeBody(t, r)
		if body["max_tokens"] != float64(defaultAnthropicMaxTokens) {
			t.Errorf("expected default max_tokens, got %v", body["max_tokens"])
		}

		if stream, _ := body["stream"].(bool); !stream {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929","content":[{"type":"text","text":%q}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":5}}`, strings.Join(chunks, ""))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		anthropicEvent(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5-20250929","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":0}}}`)
		anthropicEvent(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		for _, c := range chunks {
			anthropicEvent(w, "content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, c))
		}
		anthropicEvent(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		anthropicEvent(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`)
		anthropicEvent(w, "message_stop", `{"type":"message_stop"}`)
	}))
}

func TestAnthropicStreamMatchesNonStream(t *testing.T) {
	srv := newAnthropicServer(t, "Call me ", "Ishmael.")
	defer srv.Close()

	p, err := CreateModel(ProviderTypeAnthropic, Config{BaseURL: srv.URL, APIKey: testAnthropicKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	full, err := p.Ask(context.Background(), "First line of Moby-Dick?", model.AskOptions{})
	if err != nil {
		t.Fatalf("non-stream Ask failed: %v", err)
	}

	rec := &chunkRecorder{}
	streamed, err := p.Ask(context.Background(), "First line of Moby-Dick?", streamOpts(rec))
	if err != nil {
		t.Fatalf("stream Ask failed: %v", err)
	}

	if full != "Call me Ishmael." || streamed != full || rec.joined() != full {
		t.Errorf("mismatch: full %q, streamed %q, chunks %q", full, streamed, rec.joined())
	}
}

func TestAnthropicAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p, err := CreateModel(ProviderTypeAnthropic, Config{BaseURL: srv.URL, APIKey: testAnthropicKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	_, err = p.Ask(context.Background(), "hi", model.AskOptions{})
	assertAPIError(t, err, ErrorTypeAuth, http.StatusUnauthorized)
}

func TestAnthropicModelsFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, err := CreateModel(ProviderTypeAnthropic, Config{BaseURL: srv.URL, APIKey: testAnthropicKey})
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	models, err := p.FetchAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableModels failed: %v", err)
	}
	if len(models) != len(curatedClaudeModels) {
		t.Errorf("expected curated list, got %+v", models)
	}
}

func TestPrepareHeaders(t *testing.T) {
	tests := []struct {
		id     ProviderType
		cfg    Config
		header string
		want   string
	}{
		{ProviderTypeOpenAI, Config{APIKey: testOpenAIKey}, "Authorization", "Bearer " + testOpenAIKey},
		{ProviderTypeAnthropic, Config{APIKey: testAnthropicKey}, "X-Api-Key", testAnthropicKey},
		{ProviderTypeAnthropic, Config{APIKey: testAnthropicKey}, "Anthropic-Version", anthropicVersion},
		{ProviderTypeGemini, Config{APIKey: testGeminiKey}, "Authorization", ""},
		{ProviderTypeNvidiaFree, Config{UserID: "u-1"}, "X-User-UUID", "u-1"},
		{ProviderTypeOllama, Config{APIKey: "proxy-token"}, "Authorization", "Bearer proxy-token"},
	}

	for _, tt := range tests {
		t.Run(string(tt.id)+" "+tt.header, func(t *testing.T) {
			p, err := CreateModel(tt.id, tt.cfg)
			if err != nil {
				t.Fatalf("CreateModel failed: %v", err)
			}
			if got := p.PrepareHeaders().Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
