// Package handler runs a question end to end: prompt building, one request
// per selected AI, rendering and persistence of the answers.
package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"askai/config"
	"askai/model"
	"askai/prompt"
	"askai/provider"
	"askai/render"
	"askai/storage"
)

// Asker sends prompts to configured AI instances. *apiclient.Client
// implements it.
type Asker interface {
	AskWith(ctx context.Context, instanceID, prompt string, opts model.AskOptions) (string, error)
	ModelInfo(instanceID string) (model.AnswerSource, error)
}

// HistoryStore persists answers. *storage.HistoryManager implements it.
type HistoryStore interface {
	SaveHistory(uid, mode string, books []model.Book, question, aiID, answer string, info model.AnswerSource) error
}

// StatsRecorder records usage events. *storage.StatsStorage implements it.
type StatsRecorder interface {
	Record(ev storage.AskEvent) error
}

// ChunkSink receives streamed chunks tagged with the AI they come from.
// Calls are serialized.
type ChunkSink func(aiID, chunk string)

// Request is one question about one or more books.
type Request struct {
	Books    []model.Book
	Question string
	// AIIDs are model instance ids; empty means the selected instance.
	AIIDs       []string
	Stream      bool
	Temperature *float64
	MaxTokens   int
}

// Result is the outcome for one AI.
type Result struct {
	AIID       string
	Source     model.AnswerSource
	Answer     string
	HTML       string
	Duration   time.Duration
	Err        error
	HistoryErr error
}

// Response collects the results of all AIs, in request order.
type Response struct {
	UID     string
	Mode    string
	Prompt  string
	Results []Result
}

// Succeeded returns the results that produced an answer.
func (r *Response) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

// ResponseHandler sends a request to every requested AI concurrently.
type ResponseHandler struct {
	client  Asker
	history HistoryStore
	stats   StatsRecorder
	prompts prompt.Builder

	// OnChunk, when set, receives streamed chunks.
	OnChunk ChunkSink

	sinkMu sync.Mutex
}

// NewResponseHandler creates a handler. history and stats may be nil.
func NewResponseHandler(client Asker, history HistoryStore, stats StatsRecorder, prompts prompt.Builder) *ResponseHandler {
	return &ResponseHandler{
		client:  client,
		history: history,
		stats:   stats,
		prompts: prompts,
	}
}

// Ask builds the prompt and queries every AI in req.AIIDs in parallel.
//
// Each answer is rendered to HTML and saved to history under one shared uid.
// A failing AI does not affect the others; the returned error is non-nil
// only when the prompt cannot be built or every AI failed.
func (h *ResponseHandler) Ask(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	p, err := h.prompts.Build(req.Books, question)
	if err != nil {
		return nil, err
	}

	aiIDs := req.AIIDs
	if len(aiIDs) == 0 {
		aiIDs = []string{""}
	}

	resp := &Response{
		UID:     storage.GenerateUID(model.BookIDs(req.Books)),
		Mode:    storage.ModeSingle,
		Prompt:  p,
		Results: make([]Result, len(aiIDs)),
	}
	if len(req.Books) > 1 {
		resp.Mode = storage.ModeMulti
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Handler] Asking %d AI(s) uid=%s books=%v", len(aiIDs), resp.UID, model.BookIDs(req.Books))
	}

	var wg sync.WaitGroup
	for i, id := range aiIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			resp.Results[i] = h.askOne(ctx, req, resp, id)
		}(i, id)
	}
	wg.Wait()

	for _, res := range resp.Results {
		if res.Err == nil {
			return resp, nil
		}
	}
	return resp, resp.Results[0].Err
}

func (h *ResponseHandler) askOne(ctx context.Context, req Request, resp *Response, instanceID string) Result {
	res := Result{AIID: instanceID}

	src, err := h.client.ModelInfo(instanceID)
	if err != nil {
		res.Err = err
		return res
	}
	res.Source = src
	if res.AIID == "" {
		res.AIID = historyKey(src)
	}

	opts := model.AskOptions{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if req.Stream && h.OnChunk != nil {
		aiID := res.AIID
		opts.Callback = func(chunk string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h.sinkMu.Lock()
			h.OnChunk(aiID, chunk)
			h.sinkMu.Unlock()
			return nil
		}
	}

	start := time.Now()
	answer, err := h.client.AskWith(ctx, instanceID, resp.Prompt, opts)
	res.Duration = time.Since(start)

	h.record(resp.UID, res, answer, opts.Streaming(), err)

	if err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Handler] %s failed after %v: %v", res.AIID, res.Duration, err)
		}
		res.Err = err
		return res
	}

	res.Answer = answer
	res.HTML = render.ToHTML(answer)

	if h.history != nil {
		res.HistoryErr = h.history.SaveHistory(resp.UID, resp.Mode, req.Books, strings.TrimSpace(req.Question), res.AIID, answer, src)
		if res.HistoryErr != nil && config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Handler] Failed to save history for %s: %v", res.AIID, res.HistoryErr)
		}
	}
	return res
}

func (h *ResponseHandler) record(uid string, res Result, answer string, streamed bool, err error) {
	if h.stats == nil {
		return
	}

	ev := storage.AskEvent{
		UID:         uid,
		AIID:        res.AIID,
		Provider:    res.Source.Provider,
		Model:       res.Source.Model,
		Streamed:    streamed,
		Success:     err == nil,
		AnswerChars: len([]rune(answer)),
		Duration:    res.Duration,
	}
	if err != nil {
		ev.ErrorType = provider.ErrorTypeUnknown
		var apiErr *provider.AIAPIError
		if errors.As(err, &apiErr) {
			ev.ErrorType = apiErr.Type
		}
	}

	if rerr := h.stats.Record(ev); rerr != nil && config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Handler] Failed to record stats: %v", rerr)
	}
}

// historyKey names the selected instance in history: its id, or the provider
// id when running on the fallback provider.
func historyKey(src model.AnswerSource) string {
	if src.InstanceID != "" {
		return src.InstanceID
	}
	return src.Provider
}
