package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"askai/i18n"
	"askai/model"

	"golang.org/x/time/rate"
)

// Client-side quota for the shared free proxy: a burst of 5, then one request
// every 3 seconds.
const (
	nvidiaFreeBurst    = 5
	nvidiaFreeInterval = 3 * time.Second
)

// NvidiaFreeProvider talks to the keyless Nvidia proxy. Requests are
// attributed with an installation id and a device fingerprint instead of a key.
type NvidiaFreeProvider struct {
	*base
	limiter     *rate.Limiter
	fingerprint string
}

func NewNvidiaFreeProvider(meta ModelConfig, cfg Config) *NvidiaFreeProvider {
	p := &NvidiaFreeProvider{
		base:    newBase(meta, cfg),
		limiter: rate.NewLimiter(rate.Every(nvidiaFreeInterval), nvidiaFreeBurst),
	}
	p.fingerprint = deviceFingerprint(p.cfg.UserID)
	return p
}

// deviceFingerprint is a stable, non-reversible id of this machine.
func deviceFingerprint(userID string) string {
	host, _ := os.Hostname()
	sum := sha256.Sum256([]byte(host + "|" + runtime.GOOS + "|" + runtime.GOARCH + "|" + userID))
	return hex.EncodeToString(sum[:16])
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

// PrepareHeaders implements model.Provider.
func (p *NvidiaFreeProvider) PrepareHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-User-UUID", p.cfg.UserID)
	h.Set("X-Device-Fingerprint", p.fingerprint)
	return h
}

// PrepareRequestData implements model.Provider.
func (p *NvidiaFreeProvider) PrepareRequestData(prompt string, opts model.AskOptions) any {
	return chatRequest{
		Model:       p.GetModel(),
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      opts.Streaming(),
		Temperature: p.temperature(opts),
		MaxTokens:   p.maxTokens(opts),
	}
}

// Ask implements model.Provider.
func (p *NvidiaFreeProvider) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	if !p.limiter.Allow() {
		return "", p.friendly(&httpStatusError{StatusCode: http.StatusTooManyRequests, Body: "client-side rate limit"})
	}

	client := p.cfg.httpClient()
	u := BuildAPIURL(p.cfg.BaseURL, "v1/chat/completions")

	return p.ask(ctx, prompt, opts,
		func(ctx context.Context, prompt string, emit func(string) error) error {
			req := p.PrepareRequestData(prompt, opts)
			resp, err := doJSON(ctx, client, http.MethodPost, u, p.PrepareHeaders(), req)
			if err != nil {
				return p.friendly(err)
			}
			return readSSE(resp, func(payload string) error {
				var chunk chatResponse
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					return fmt.Errorf("error decoding stream chunk: %w", err)
				}
				if len(chunk.Choices) == 0 {
					return nil
				}
				return emit(chunk.Choices[0].Delta.Content)
			})
		},
		func(ctx context.Context, prompt string) (string, error) {
			var out chatResponse
			if err := decodeJSON(ctx, client, http.MethodPost, u, p.PrepareHeaders(), p.PrepareRequestData(prompt, opts), &out); err != nil {
				return "", p.friendly(err)
			}
			if len(out.Choices) == 0 {
				return "", nil
			}
			return out.Choices[0].Message.Content, nil
		},
	)
}

// friendly maps the proxy's HTTP statuses to user-facing messages:
// 429 rate limit, 403/451 geographic restriction, 5xx server error.
func (p *NvidiaFreeProvider) friendly(err error) error {
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var msgID string
	switch {
	case statusErr.StatusCode == http.StatusTooManyRequests:
		msgID = i18n.ErrRateLimit
	case statusErr.StatusCode == http.StatusForbidden || statusErr.StatusCode == http.StatusUnavailableForLegalReasons:
		msgID = i18n.ErrGeoRestricted
	case statusErr.StatusCode >= 500:
		msgID = i18n.ErrServer
	default:
		return err
	}

	return &AIAPIError{
		Message:    i18n.T(p.cfg.Language, msgID, p.DisplayName()),
		StatusCode: statusErr.StatusCode,
		Type:       ErrorTypeAPI,
		Detail:     extractErrorMessage(statusErr.Body),
		Err:        err,
	}
}

// FetchAvailableModels implements model.Provider via the proxy's /v1/models,
// falling back to the default model.
func (p *NvidiaFreeProvider) FetchAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.fetchModels(ctx, func(ctx context.Context) ([]model.ModelInfo, bool, error) {
		var out struct {
			Data []struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		u := BuildAPIURL(p.cfg.BaseURL, "v1/models")
		if err := decodeJSON(ctx, p.cfg.httpClient(), http.MethodGet, u, p.PrepareHeaders(), nil, &out); err != nil || len(out.Data) == 0 {
			return p.modelInfos(p.meta.DefaultModel), false, nil
		}

		ids := make([]string, 0, len(out.Data))
		for _, m := range out.Data {
			ids = append(ids, m.ID)
		}
		return p.modelInfos(ids...), true, nil
	})
}
