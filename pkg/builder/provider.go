package builder

import (
	"slices"

	"github.com/Egham-7/bedtime-stories/internal/models"
)

type ProviderBuilder struct {
	apiKey    string
	baseURL   string
	model     string
	timeoutMs int
	headers   map[string]string
}

func NewProviderBuilder(apiKey string) *ProviderBuilder {
	return &ProviderBuilder{
		apiKey:  apiKey,
		headers: make(map[string]string),
	}
}

func (pb *ProviderBuilder) WithBaseURL(url string) *ProviderBuilder {
	pb.baseURL = url
	return pb
}

func (pb *ProviderBuilder) WithModel(model string) *ProviderBuilder {
	pb.model = model
	return pb
}

func (pb *ProviderBuilder) WithTimeout(ms int) *ProviderBuilder {
	pb.timeoutMs = ms
	return pb
}

func (pb *ProviderBuilder) WithHeader(key, value string) *ProviderBuilder {
	pb.headers[key] = value
	return pb
}

func (pb *ProviderBuilder) Build() models.ProviderConfig {
	return models.ProviderConfig{
		APIKey:    pb.apiKey,
		BaseURL:   pb.baseURL,
		Model:     pb.model,
		TimeoutMs: pb.timeoutMs,
		Headers:   pb.headers,
	}
}

// AddGeminiProvider appends Gemini to the text fallback order
func (b *Builder) AddGeminiProvider(cfg models.ProviderConfig) *Builder {
	b.cfg.Providers.Text.Gemini = cfg
	b.appendTextProvider(models.ProviderGemini)
	return b
}

// AddAnthropicProvider appends Anthropic to the text fallback order
func (b *Builder) AddAnthropicProvider(cfg models.ProviderConfig) *Builder {
	b.cfg.Providers.Text.Anthropic = cfg
	b.appendTextProvider(models.ProviderAnthropic)
	return b
}

// AddOpenAIProvider appends OpenAI to the text fallback order
func (b *Builder) AddOpenAIProvider(cfg models.ProviderConfig) *Builder {
	b.cfg.Providers.Text.OpenAI = cfg
	b.appendTextProvider(models.ProviderOpenAI)
	return b
}

func (b *Builder) appendTextProvider(name string) {
	if !slices.Contains(b.cfg.Providers.Text.Order, name) {
		b.cfg.Providers.Text.Order = append(b.cfg.Providers.Text.Order, name)
	}
}

// WithImageProvider overrides the Imagen credentials, which otherwise follow Gemini
func (b *Builder) WithImageProvider(cfg models.ProviderConfig) *Builder {
	b.cfg.Providers.Image = cfg
	return b
}

func (b *Builder) WithSpeech(cfg models.SpeechProviderConfig) *Builder {
	b.cfg.Providers.Speech = cfg
	return b
}
