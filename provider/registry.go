package provider

// ModelConfig is the static metadata of a provider: where it lives, which
// model it uses by default and what its credential looks like.
type ModelConfig struct {
	ID             ProviderType
	DisplayName    string
	DefaultBaseURL string
	DefaultModel   string

	// APIKeyField is the name of the credential field in the provider's own
	// vocabulary (xAI calls it auth_token). Empty when no key is used.
	APIKeyField  string
	MinKeyLength int
	KeyOptional  bool

	// ModelRequired is set for providers with no sensible default model.
	ModelRequired bool
}

// RequiresKey reports whether a request cannot be sent without a key.
func (m ModelConfig) RequiresKey() bool {
	return m.APIKeyField != "" && !m.KeyOptional
}

// registry is ordered the way providers are listed to users.
var registry = []ModelConfig{
	{
		ID:             ProviderTypeGrok,
		DisplayName:    "Grok (x.AI)",
		DefaultBaseURL: "https://api.x.ai/v1",
		DefaultModel:   "grok-4-latest",
		APIKeyField:    "auth_token",
		MinKeyLength:   20,
	},
	{
		ID:             ProviderTypeOpenAI,
		DisplayName:    "OpenAI",
		DefaultBaseURL: "https://api.openai.com/v1",
		DefaultModel:   "gpt-4o-mini",
		APIKeyField:    "api_key",
		MinKeyLength:   20,
	},
	{
		ID:             ProviderTypeAnthropic,
		DisplayName:    "Anthropic (Claude)",
		DefaultBaseURL: "https://api.anthropic.com",
		DefaultModel:   "claude-sonnet-4-5-20250929",
		APIKeyField:    "api_key",
		MinKeyLength:   20,
	},
	{
		ID:             ProviderTypeGemini,
		DisplayName:    "Google Gemini",
		DefaultBaseURL: "https://generativelanguage.googleapis.com/v1beta",
		DefaultModel:   "gemini-2.0-flash",
		APIKeyField:    "api_key",
		MinKeyLength:   10,
	},
	{
		ID:             ProviderTypeDeepSeek,
		DisplayName:    "DeepSeek",
		DefaultBaseURL: "https://api.deepseek.com",
		DefaultModel:   "deepseek-chat",
		APIKeyField:    "api_key",
		MinKeyLength:   10,
	},
	{
		ID:             ProviderTypeNvidia,
		DisplayName:    "Nvidia",
		DefaultBaseURL: "https://integrate.api.nvidia.com/v1",
		DefaultModel:   "meta/llama-3.3-70b-instruct",
		APIKeyField:    "api_key",
		MinKeyLength:   20,
	},
	{
		ID:             ProviderTypeNvidiaFree,
		DisplayName:    "Nvidia (free tier)",
		DefaultBaseURL: "https://nvidia-free.askai.workers.dev",
		DefaultModel:   "meta/llama-3.3-70b-instruct",
	},
	{
		ID:             ProviderTypeOpenRouter,
		DisplayName:    "OpenRouter",
		DefaultBaseURL: "https://openrouter.ai/api/v1",
		DefaultModel:   "openai/gpt-4o-mini",
		APIKeyField:    "api_key",
		MinKeyLength:   10,
	},
	{
		ID:             ProviderTypePerplexity,
		DisplayName:    "Perplexity",
		DefaultBaseURL: "https://api.perplexity.ai",
		DefaultModel:   "sonar",
		APIKeyField:    "api_key",
		MinKeyLength:   10,
	},
	{
		ID:             ProviderTypeOllama,
		DisplayName:    "Ollama",
		DefaultBaseURL: "http://localhost:11434",
		DefaultModel:   "llama3.1:latest",
		APIKeyField:    "api_key",
		KeyOptional:    true,
	},
	{
		ID:             ProviderTypeCustom,
		DisplayName:    "Custom (OpenAI compatible)",
		DefaultBaseURL: "http://localhost:1234",
		APIKeyField:    "api_key",
		KeyOptional:    true,
		ModelRequired:  true,
	},
}

// Lookup returns the registry entry of a provider id.
func Lookup(id ProviderType) (ModelConfig, bool) {
	for _, mc := range registry {
		if mc.ID == id {
			return mc, true
		}
	}
	return ModelConfig{}, false
}

// RegisteredProviders returns every provider id in registry order.
func RegisteredProviders() []ProviderType {
	ids := make([]ProviderType, len(registry))
	for i, mc := range registry {
		ids[i] = mc.ID
	}
	return ids
}

// Registry returns a copy of all provider metadata in registry order.
func Registry() []ModelConfig {
	out := make([]ModelConfig, len(registry))
	copy(out, registry)
	return out
}
