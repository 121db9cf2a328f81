// Package apiclient is the entry point the rest of askai uses to talk to AI
// backends. It resolves configured model instances into providers, caches
// them and normalizes their answers.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"askai/config"
	"askai/i18n"
	"askai/model"
	"askai/provider"
)

// FallbackProvider is used when the selected instance is missing or unusable.
const FallbackProvider = provider.ProviderTypeGrok

// fallbackKey is the cache slot of the fallback provider. Instance ids are
// 8 hex characters, so it cannot collide.
const fallbackKey = "@" + string(FallbackProvider)

const testPrompt = "Reply with the single word OK."

// Factory builds a provider. provider.CreateModel in production.
type Factory func(id provider.ProviderType, cfg provider.Config) (model.Provider, error)

// Client resolves model instances from the config into providers.
type Client struct {
	cfg     *config.Config
	factory Factory

	mu        sync.Mutex
	providers map[string]model.Provider
}

// New creates a client backed by provider.CreateModel.
func New(cfg *config.Config) *Client {
	return NewWithFactory(cfg, provider.CreateModel)
}

// NewWithFactory creates a client with a custom provider factory.
func NewWithFactory(cfg *config.Config, factory Factory) *Client {
	return &Client{
		cfg:       cfg,
		factory:   factory,
		providers: make(map[string]model.Provider),
	}
}

// Reload drops every cached provider so the next call re-reads the config.
func (c *Client) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.providers = make(map[string]model.Provider)
	provider.ClearModelsCache()

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[APIClient] Reloaded, provider cache cleared")
	}
}

// SelectedID returns the id of the selected instance, possibly empty.
func (c *Client) SelectedID() string {
	if c.cfg.User == nil {
		return ""
	}
	return c.cfg.User.SelectedModel
}

// ProviderConfig builds the provider configuration of an instance.
func (c *Client) ProviderConfig(instanceID string) (provider.ProviderType, provider.Config, error) {
	inst, ok := c.cfg.Instance(instanceID)
	if !ok {
		return "", provider.Config{}, fmt.Errorf("model instance %q not found", instanceID)
	}

	id := provider.ProviderType(inst.Provider)
	pc := c.baseConfig()
	pc.BaseURL = inst.APIBaseURL
	pc.Model = inst.Model
	pc.APIKey = c.cfg.APIKey(instanceID)
	pc.DisplayName = inst.DisplayName
	pc.Temperature = inst.Temperature
	pc.MaxTokens = inst.MaxTokens
	if id == provider.ProviderTypeNvidiaFree {
		pc.UserID = c.cfg.NvidiaFreeUserID()
	}
	return id, pc, nil
}

func (c *Client) baseConfig() provider.Config {
	return provider.Config{
		RequestTimeout: c.cfg.RequestTimeout(),
		StallTimeout:   c.cfg.StallTimeout(),
		Language:       c.cfg.Language(),
	}
}

// Provider returns the provider of an instance, creating it on first use.
// An empty instanceID means the selected instance.
//
// When the selected instance is missing or fails to build with a config
// error, the grok provider is tried with its environment key. If that fails
// too, the original error is returned.
func (c *Client) Provider(instanceID string) (model.Provider, error) {
	p, _, err := c.resolve(instanceID)
	return p, err
}

// resolve returns the provider and the cache key it lives under.
func (c *Client) resolve(instanceID string) (model.Provider, string, error) {
	selected := instanceID == ""
	if selected {
		instanceID = c.SelectedID()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.providers[instanceID]; ok && instanceID != "" {
		return p, instanceID, nil
	}

	p, err := c.build(instanceID)
	if err == nil {
		c.providers[instanceID] = p
		return p, instanceID, nil
	}
	if !selected || !usableFallback(err) {
		return nil, "", err
	}

	if fp, ok := c.providers[fallbackKey]; ok {
		return fp, fallbackKey, nil
	}

	pc := c.baseConfig()
	pc.APIKey = config.EnvAPIKey(string(FallbackProvider))
	fp, ferr := c.factory(FallbackProvider, pc)
	if ferr != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[APIClient] Fallback to %s failed: %v", FallbackProvider, ferr)
		}
		return nil, "", err
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[APIClient] WARNING: instance %q unusable (%v), using %s fallback", instanceID, err, FallbackProvider)
	}
	c.providers[fallbackKey] = fp
	return fp, fallbackKey, nil
}

func (c *Client) build(instanceID string) (model.Provider, error) {
	if instanceID == "" {
		return nil, provider.NewConfigError(c.cfg.Language(), i18n.ErrNoModelSelected)
	}

	id, pc, err := c.ProviderConfig(instanceID)
	if err != nil {
		return nil, provider.NewConfigError(c.cfg.Language(), i18n.ErrNoSuchInstance, instanceID)
	}

	p, err := c.factory(id, pc)
	if err != nil {
		return nil, err
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[APIClient] Created provider for instance %s (%s, model=%s)", instanceID, id, p.GetModel())
	}
	return p, nil
}

func usableFallback(err error) bool {
	var apiErr *provider.AIAPIError
	return errors.As(err, &apiErr) && apiErr.Type == provider.ErrorTypeConfig
}

// Ask sends prompt to the selected instance without streaming.
func (c *Client) Ask(ctx context.Context, prompt string, opts model.AskOptions) (string, error) {
	opts.Stream = false
	opts.Callback = nil
	return c.AskWith(ctx, "", prompt, opts)
}

// AskStream sends prompt to the selected instance, streaming chunks to cb.
func (c *Client) AskStream(ctx context.Context, prompt string, cb model.StreamCallback, opts model.AskOptions) (string, error) {
	opts.Stream = true
	opts.Callback = cb
	return c.AskWith(ctx, "", prompt, opts)
}

// AskWith sends prompt to a specific instance ("" for the selected one).
//
// Streaming is used only when requested and enabled for the instance.
// Otherwise the whole answer is delivered to the callback as one chunk, so
// callers see the same sequence of events either way.
func (c *Client) AskWith(ctx context.Context, instanceID, prompt string, opts model.AskOptions) (string, error) {
	p, key, err := c.resolve(instanceID)
	if err != nil {
		return "", err
	}

	cb := opts.Callback
	wantStream := opts.Streaming()
	if wantStream && !c.streamingEnabled(key) {
		opts.Stream = false
		opts.Callback = nil
	}

	answer, err := p.Ask(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", provider.NewEmptyAnswerError(c.cfg.Language(), p.DisplayName())
	}

	if wantStream && !opts.Streaming() {
		if err := cb(answer); err != nil {
			return answer, err
		}
	}
	return answer, nil
}

// streamingEnabled reports whether the instance under key may stream. The
// fallback provider always streams.
func (c *Client) streamingEnabled(key string) bool {
	if key == fallbackKey {
		return true
	}
	inst, ok := c.cfg.Instance(key)
	return !ok || inst.EnableStreaming
}

// CurrentModelInfo describes the selected instance for history records.
func (c *Client) CurrentModelInfo() (model.AnswerSource, error) {
	return c.ModelInfo("")
}

// ModelInfo describes an instance ("" for the selected one).
func (c *Client) ModelInfo(instanceID string) (model.AnswerSource, error) {
	p, key, err := c.resolve(instanceID)
	if err != nil {
		return model.AnswerSource{}, err
	}

	src := model.AnswerSource{
		Provider:    p.ID(),
		Model:       p.GetModel(),
		DisplayName: p.DisplayName(),
	}
	if key != fallbackKey {
		src.InstanceID = key
	}
	return src, nil
}

// FetchModels lists the models offered by an instance's provider.
func (c *Client) FetchModels(ctx context.Context, instanceID string) ([]model.ModelInfo, error) {
	p, err := c.Provider(instanceID)
	if err != nil {
		return nil, err
	}
	return p.FetchAvailableModels(ctx)
}

// TestConnection builds a fresh provider for an instance, validates its
// credential and sends a short prompt. Returns the answer.
func (c *Client) TestConnection(ctx context.Context, instanceID string) (string, error) {
	if instanceID == "" {
		instanceID = c.SelectedID()
	}

	p, err := c.build(instanceID)
	if err != nil {
		return "", err
	}
	if err := p.ValidateToken(); err != nil {
		return "", err
	}
	if pinger, ok := p.(provider.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return "", err
		}
	}

	answer, err := p.Ask(ctx, testPrompt, model.AskOptions{})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", provider.NewEmptyAnswerError(c.cfg.Language(), p.DisplayName())
	}
	return answer, nil
}
