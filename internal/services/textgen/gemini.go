package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

var geminiClients = clientcache.New[*genai.Client]()

// Gemini generates text through the Gemini API
type Gemini struct {
	config models.ProviderConfig
	model  string
}

func NewGemini(config models.ProviderConfig) *Gemini {
	return &Gemini{config: config, model: modelOr(config.Model, DefaultGeminiModel)}
}

func (g *Gemini) Name() string { return models.ProviderGemini }

// NewGenAIClient returns a cached genai client for the given credentials.
// The image renderer shares it.
func NewGenAIClient(ctx context.Context, config models.ProviderConfig) (*genai.Client, error) {
	key := clientcache.Key(config.APIKey, config.BaseURL)
	return geminiClients.GetOrCreate(key, func() (*genai.Client, error) {
		fiberlog.Debugf("Creating new Gemini client (config hash: %s)", key[:8])

		clientConfig := &genai.ClientConfig{
			APIKey:  config.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if config.BaseURL != "" {
			clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
		}

		client, err := genai.NewClient(ctx, clientConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	})
}

func (g *Gemini) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	client, err := NewGenAIClient(ctx, g.config)
	if err != nil {
		return "", models.NewProviderError(g.Name(), "client setup failed", err)
	}

	ctx, cancel := withTimeout(ctx, g.config.TimeoutMs)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
		TopP:        genai.Ptr(float32(opts.TopP)),
	}
	if opts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSON {
		genConfig.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		return "", models.NewProviderError(g.Name(), "generate request failed", err)
	}

	text := strings.TrimSpace(resp.Text())
	// Callers substitute their own fallback content for an empty reply
	if text == "" {
		fiberlog.Warnf("%s returned an empty reply", g.Name())
	}
	return text, nil
}
