package textgen

import (
	"context"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

var openaiClients = clientcache.New[*openai.Client]()

// NewOpenAIClient returns a cached OpenAI client for the given credentials.
// The speech backend shares it.
func NewOpenAIClient(config models.ProviderConfig) *openai.Client {
	key := clientcache.Key(config.APIKey, config.BaseURL)
	client, _ := openaiClients.GetOrCreate(key, func() (*openai.Client, error) {
		fiberlog.Debugf("Creating new OpenAI client (config hash: %s)", key[:8])

		opts := []openaiOption.RequestOption{
			openaiOption.WithAPIKey(config.APIKey),
		}
		if config.BaseURL != "" {
			opts = append(opts, openaiOption.WithBaseURL(config.BaseURL))
		}
		for header, value := range config.Headers {
			opts = append(opts, openaiOption.WithHeader(header, value))
		}

		client := openai.NewClient(opts...)
		return &client, nil
	})
	return client
}

// OpenAI generates text through Chat Completions
type OpenAI struct {
	config models.ProviderConfig
	model  string
}

func NewOpenAI(config models.ProviderConfig) *OpenAI {
	return &OpenAI{config: config, model: modelOr(config.Model, DefaultOpenAIModel)}
}

func (o *OpenAI) Name() string { return models.ProviderOpenAI }

func (o *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, cancel := withTimeout(ctx, o.config.TimeoutMs)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(opts.Temperature),
		TopP:        openai.Float(opts.TopP),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := NewOpenAIClient(o.config).Chat.Completions.New(ctx, params)
	if err != nil {
		return "", models.NewProviderError(o.Name(), "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewProviderError(o.Name(), "no choices returned", nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Callers substitute their own fallback content for an empty reply
	if text == "" {
		fiberlog.Warnf("%s returned an empty reply", o.Name())
	}
	return text, nil
}
