package provider

import (
	"context"
	"sync"

	"askai/config"
	"askai/i18n"
	"askai/model"
)

// base carries what every adapter shares: registry metadata, the instance
// configuration and the active model.
type base struct {
	meta ModelConfig
	cfg  Config

	mu    sync.RWMutex
	model string
}

func newBase(meta ModelConfig, cfg Config) *base {
	if cfg.BaseURL == "" {
		cfg.BaseURL = meta.DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = meta.DefaultModel
	}
	cfg.Type = meta.ID
	return &base{meta: meta, cfg: cfg, model: cfg.Model}
}

func (b *base) ID() string {
	return string(b.meta.ID)
}

func (b *base) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

func (b *base) SetModel(m string) {
	b.mu.Lock()
	b.model = m
	b.mu.Unlock()
}

func (b *base) DisplayName() string {
	if b.cfg.DisplayName != "" {
		return b.cfg.DisplayName
	}
	return b.meta.DisplayName
}

// ValidateToken checks the credential against the registry rules and that a
// model is set.
func (b *base) ValidateToken() error {
	lang := b.cfg.Language
	key := b.cfg.APIKey

	if b.meta.RequiresKey() {
		if key == "" {
			return NewConfigError(lang, i18n.ErrMissingKey, b.DisplayName())
		}
		if len(key) < b.meta.MinKeyLength {
			return NewConfigError(lang, i18n.ErrShortKey, b.DisplayName(), b.meta.MinKeyLength)
		}
	}

	if b.GetModel() == "" {
		return NewConfigError(lang, i18n.ErrMissingModel, b.DisplayName())
	}
	return nil
}

// temperature returns the per-request temperature, falling back to the
// instance setting.
func (b *base) temperature(opts model.AskOptions) *float64 {
	if opts.Temperature != nil {
		return opts.Temperature
	}
	return b.cfg.Temperature
}

func (b *base) maxTokens(opts model.AskOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return b.cfg.MaxTokens
}

// wrap converts err into *AIAPIError in the configured language.
func (b *base) wrap(err error) error {
	return wrapError(b.cfg.Language, b.DisplayName(), err)
}

// ask runs the shared request flow: streaming requests go through the stall
// watchdog, everything else is bounded by the request timeout.
func (b *base) ask(ctx context.Context, prompt string, opts model.AskOptions, stream streamFunc, once func(ctx context.Context, prompt string) (string, error)) (string, error) {
	if err := b.ValidateToken(); err != nil {
		return "", err
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s ask model=%s stream=%v prompt=%d chars", b.ID(), b.GetModel(), opts.Streaming(), len(prompt))
	}

	if opts.Streaming() {
		text, err := streamWithRecovery(ctx, b, prompt, opts.Callback, stream)
		if err != nil {
			return text, b.wrap(err)
		}
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.requestTimeout())
	defer cancel()

	text, err := once(ctx, prompt)
	if err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] %s request failed: %v", b.ID(), err)
		}
		return "", b.wrap(err)
	}
	return text, nil
}

// fetchModels serves FetchAvailableModels through the shared model cache.
func (b *base) fetchModels(ctx context.Context, fetch modelFetch) ([]model.ModelInfo, error) {
	models, err := cachedModels(ctx, modelsCacheKey(b.ID(), b.cfg.BaseURL, b.cfg.APIKey), fetch)
	if err != nil {
		return nil, b.wrap(err)
	}
	return models, nil
}

// modelInfos turns a list of ids into ModelInfo values of this provider.
func (b *base) modelInfos(ids ...string) []model.ModelInfo {
	out := make([]model.ModelInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ModelInfo{ID: id, Name: id, Provider: b.ID()})
	}
	return out
}
