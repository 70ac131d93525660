package textgen

import (
	"context"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Default models per provider
const (
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"

	defaultMaxTokens = 8192
)

// DefaultOrder is used when providers.text.order is empty
var DefaultOrder = []string{models.ProviderGemini, models.ProviderAnthropic, models.ProviderOpenAI}

// Options tune a single completion
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	JSON        bool
}

// StoryOptions are the sampling settings used for all story text
func StoryOptions() Options {
	return Options{Temperature: 0.7, TopP: 0.9, MaxTokens: defaultMaxTokens, JSON: true}
}

// Generator produces text from a single user prompt
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// NewGenerators builds the configured providers in fallback order, skipping those without credentials
func NewGenerators(cfg models.TextProvidersConfig) []Generator {
	order := cfg.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	generators := make([]Generator, 0, len(order))
	for _, name := range order {
		providerConfig, ok := cfg.Get(name)
		if !ok {
			fiberlog.Warnf("Unknown text provider %q in providers.text.order, skipping", name)
			continue
		}
		if !providerConfig.IsConfigured() {
			continue
		}

		switch name {
		case models.ProviderGemini:
			generators = append(generators, NewGemini(providerConfig))
		case models.ProviderAnthropic:
			generators = append(generators, NewAnthropic(providerConfig))
		case models.ProviderOpenAI:
			generators = append(generators, NewOpenAI(providerConfig))
		}
	}
	return generators
}

func withTimeout(ctx context.Context, timeoutMs int) (context.Context, context.CancelFunc) {
	if timeoutMs <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
}

func modelOr(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
