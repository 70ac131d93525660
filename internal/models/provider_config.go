package models

// Text provider names, also used as circuit breaker service names
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
)

// ProviderConfig holds credentials and endpoint overrides for one hosted model
type ProviderConfig struct {
	APIKey    string            `yaml:"api_key" json:"api_key,omitzero"`
	BaseURL   string            `yaml:"base_url" json:"base_url,omitzero"`     // Optional custom base URL
	Model     string            `yaml:"model" json:"model,omitzero"`           // Model name used for requests
	TimeoutMs int               `yaml:"timeout_ms" json:"timeout_ms,omitzero"` // Optional timeout in milliseconds
	Headers   map[string]string `yaml:"headers" json:"headers,omitzero"`       // Optional custom headers
}

// IsConfigured reports whether the provider has credentials
func (p ProviderConfig) IsConfigured() bool {
	return p.APIKey != ""
}

// TextProvidersConfig lists the text generation providers in fallback order
type TextProvidersConfig struct {
	Order     []string       `yaml:"order" json:"order,omitzero"`
	Gemini    ProviderConfig `yaml:"gemini" json:"gemini,omitzero"`
	Anthropic ProviderConfig `yaml:"anthropic" json:"anthropic,omitzero"`
	OpenAI    ProviderConfig `yaml:"openai" json:"openai,omitzero"`
}

// Get returns the provider configuration by name
func (t TextProvidersConfig) Get(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderGemini:
		return t.Gemini, true
	case ProviderAnthropic:
		return t.Anthropic, true
	case ProviderOpenAI:
		return t.OpenAI, true
	default:
		return ProviderConfig{}, false
	}
}

// SpeechProviderConfig configures narration synthesis
type SpeechProviderConfig struct {
	Provider       string `yaml:"provider" json:"provider,omitzero"` // "google" or "openai"
	Credentials    string `yaml:"credentials" json:"-"`
	CredentialsB64 string `yaml:"credentials_b64" json:"-"`
	ProjectID      string `yaml:"project_id" json:"project_id,omitzero"`
	APIKey         string `yaml:"api_key" json:"-"`
	Model          string `yaml:"model" json:"model,omitzero"`
	CacheDir       string `yaml:"cache_dir" json:"cache_dir,omitzero"`
	TokenURL       string `yaml:"token_url" json:"token_url,omitzero"`
	BaseURL        string `yaml:"base_url" json:"base_url,omitzero"`
}

// IsConfigured reports whether the selected backend has credentials
func (s SpeechProviderConfig) IsConfigured() bool {
	if s.Provider == ProviderOpenAI {
		return s.APIKey != ""
	}
	return s.Credentials != "" || s.CredentialsB64 != ""
}

// ProvidersConfig groups every hosted generation service
type ProvidersConfig struct {
	Text   TextProvidersConfig  `yaml:"text" json:"text"`
	Image  ProviderConfig       `yaml:"image" json:"image"`
	Speech SpeechProviderConfig `yaml:"speech" json:"speech"`
}
