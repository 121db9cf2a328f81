package provider

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"askai/config"
	"askai/i18n"
	"askai/model"
)

// streamFunc performs one streaming request for prompt and hands every text
// delta to emit. It returns when the stream ends, ctx is done or emit fails.
type streamFunc func(ctx context.Context, prompt string, emit func(chunk string) error) error

// recoveryPrompt asks the model to pick up an interrupted answer.
func recoveryPrompt(prompt, partial string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nYour previous answer was interrupted. This is what you had written so far:\n\n")
	b.WriteString(partial)
	b.WriteString("\n\nContinue the answer exactly where it stopped. Do not repeat anything that was already written.")
	return b.String()
}

// watchStream runs one stream under a stall watchdog. The timer restarts on
// every chunk; when it fires the stream's context is cancelled and stalled
// is reported instead of the cancellation error.
func watchStream(ctx context.Context, stall time.Duration, prompt string, cb model.StreamCallback, do streamFunc) (text string, stalled bool, err error) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fired atomic.Bool
	timer := time.AfterFunc(stall, func() {
		fired.Store(true)
		cancel()
	})
	defer timer.Stop()

	var b strings.Builder
	emit := func(chunk string) error {
		if chunk == "" {
			return nil
		}
		timer.Reset(stall)
		b.WriteString(chunk)
		return cb(chunk)
	}

	err = do(sctx, prompt, emit)
	timer.Stop()

	if err != nil && fired.Load() && ctx.Err() == nil {
		return b.String(), true, nil
	}
	return b.String(), false, err
}

// streamWithRecovery streams prompt through cb. If the stream stalls after
// some content arrived, exactly one continuation request is made and its
// chunks go through the same callback. A stall before any content is a
// timeout error. The accumulated text is returned.
func streamWithRecovery(ctx context.Context, b *base, prompt string, cb model.StreamCallback, do streamFunc) (string, error) {
	stall := b.cfg.stallTimeout()

	text, stalled, err := watchStream(ctx, stall, prompt, cb, do)
	if err != nil {
		return text, err
	}
	if !stalled {
		return text, nil
	}

	if text == "" {
		return "", &AIAPIError{
			Message: i18n.T(b.cfg.Language, i18n.ErrStalled, b.DisplayName()),
			Type:    ErrorTypeAPI,
			Detail:  "no data received within " + stall.String(),
			Err:     context.DeadlineExceeded,
		}
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Stream] %s stalled after %d chars, sending recovery request", b.ID(), len(text))
	}

	more, stalledAgain, err := watchStream(ctx, stall, recoveryPrompt(prompt, text), cb, do)
	if config.Debug && config.DebugLog != nil {
		switch {
		case err != nil:
			config.DebugLog.Printf("[Stream] %s recovery failed: %v", b.ID(), err)
		case stalledAgain:
			config.DebugLog.Printf("[Stream] %s recovery stalled, giving up", b.ID())
		}
	}
	if ctx.Err() != nil {
		return text + more, ctx.Err()
	}
	return text + more, nil
}
