package provider

import (
	"askai/config"
	"askai/i18n"
	"askai/model"
)

// CreateModel builds the provider registered under id, fills empty base URL
// and model from the registry and validates the credential.
//
// Returns a config_error *AIAPIError if:
//   - id is not a registered provider
//   - the credential is missing or shorter than the provider's minimum
//   - no model is configured and the provider has no default
//
// Example:
//
//	p, err := provider.CreateModel(provider.ProviderTypeGemini, provider.Config{
//	    APIKey: os.Getenv("GEMINI_KEY"),
//	})
func CreateModel(id ProviderType, cfg Config) (model.Provider, error) {
	meta, ok := Lookup(id)
	if !ok {
		return nil, NewConfigError(cfg.Language, i18n.ErrUnknownProvider, string(id))
	}

	var p model.Provider
	switch id {
	case ProviderTypeGrok, ProviderTypeOpenAI, ProviderTypeDeepSeek, ProviderTypeNvidia,
		ProviderTypeOpenRouter, ProviderTypePerplexity, ProviderTypeCustom:
		p = NewOpenAICompatProvider(meta, cfg)
	case ProviderTypeAnthropic:
		p = NewAnthropicProvider(meta, cfg)
	case ProviderTypeGemini:
		p = NewGeminiProvider(meta, cfg)
	case ProviderTypeNvidiaFree:
		p = NewNvidiaFreeProvider(meta, cfg)
	case ProviderTypeOllama:
		op, err := NewOllamaProvider(meta, cfg)
		if err != nil {
			return nil, err
		}
		p = op
	default:
		return nil, NewConfigError(cfg.Language, i18n.ErrUnknownProvider, string(id))
	}

	if err := p.ValidateToken(); err != nil {
		return nil, err
	}

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Factory] Created %s provider (model=%s)", id, p.GetModel())
	}
	return p, nil
}
