package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"askai/model"
)

// writeSSE writes each payload as one SSE event and flushes it.
func writeSSE(w http.ResponseWriter, payloads ...string) {
	flusher, _ := w.(http.Flusher)
	for _, p := range payloads {
		fmt.Fprintf(w, "data: %s\n\n", p)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// chunkRecorder collects streamed chunks.
type chunkRecorder struct {
	mu     sync.Mutex
	chunks []string
}

func (r *chunkRecorder) callback(chunk string) error {
	r.mu.Lock()
	r.chunks = append(r.chunks, chunk)
	r.mu.Unlock()
	return nil
}

func (r *chunkRecorder) joined() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.chunks, "")
}

func (r *chunkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

func streamOpts(rec *chunkRecorder) model.AskOptions {
	return model.AskOptions{Stream: true, Callback: rec.callback}
}

// decodeBody decodes a JSON request body into a generic map.
func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("failed to read body: %v", err)
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Errorf("failed to decode body %q: %v", data, err)
	}
	return body
}

func mustLookup(t *testing.T, id ProviderType) ModelConfig {
	t.Helper()
	meta, ok := Lookup(id)
	if !ok {
		t.Fatalf("provider %s not registered", id)
	}
	return meta
}

func assertAPIError(t *testing.T, err error, wantType string, wantStatus int) *AIAPIError {
	t.Helper()
	apiErr, ok := err.(*AIAPIError)
	if !ok {
		t.Fatalf("expected *AIAPIError, got %T: %v", err, err)
	}
	if apiErr.Type != wantType {
		t.Errorf("expected type %s, got %s (%s)", wantType, apiErr.Type, apiErr.Detail)
	}
	if wantStatus != 0 && apiErr.StatusCode != wantStatus {
		t.Errorf("expected status %d, got %d", wantStatus, apiErr.StatusCode)
	}
	return apiErr
}
