package textgen

import (
	"context"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/utils/clientcache"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

var anthropicClients = clientcache.New[*anthropic.Client]()

// Anthropic generates text through the Messages API
type Anthropic struct {
	config models.ProviderConfig
	model  string
}

func NewAnthropic(config models.ProviderConfig) *Anthropic {
	return &Anthropic{config: config, model: modelOr(config.Model, DefaultAnthropicModel)}
}

func (a *Anthropic) Name() string { return models.ProviderAnthropic }

func (a *Anthropic) client() *anthropic.Client {
	key := clientcache.Key(a.config.APIKey, a.config.BaseURL)
	client, _ := anthropicClients.GetOrCreate(key, func() (*anthropic.Client, error) {
		fiberlog.Debugf("Creating new Anthropic client (config hash: %s)", key[:8])

		clientOpts := []option.RequestOption{
			option.WithAPIKey(a.config.APIKey),
		}
		if a.config.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(a.config.BaseURL))
		}
		for header, value := range a.config.Headers {
			clientOpts = append(clientOpts, option.WithHeader(header, value))
		}

		client := anthropic.NewClient(clientOpts...)
		return &client, nil
	})
	return client
}

func (a *Anthropic) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, cancel := withTimeout(ctx, a.config.TimeoutMs)
	defer cancel()

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	// The Messages API has no JSON mode; the prompt already asks for JSON only
	msg, err := a.client().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(opts.Temperature),
		TopP:        anthropic.Float(opts.TopP),
	})
	if err != nil {
		return "", models.NewProviderError(a.Name(), "messages request failed", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	// Callers substitute their own fallback content for an empty reply
	if text == "" {
		fiberlog.Warnf("%s returned an empty reply", a.Name())
	}
	return text, nil
}
