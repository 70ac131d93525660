package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"

	"github.com/openai/openai-go/v2"
)

const (
	DefaultOpenAISpeechModel = "tts-1"
	defaultOpenAIVoice       = "nova"
)

// OpenAIBackend synthesizes narration with the OpenAI speech endpoint. Pitch is not supported.
type OpenAIBackend struct {
	config models.ProviderConfig
	model  string
}

func NewOpenAIBackend(cfg models.SpeechProviderConfig) *OpenAIBackend {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAISpeechModel
	}
	return &OpenAIBackend{
		config: models.ProviderConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL},
		model:  model,
	}
}

func (o *OpenAIBackend) Name() string { return models.ProviderOpenAI }

// openAIVoice keeps OpenAI voice names and replaces Google voice names with the default
func openAIVoice(voice string) string {
	if voice == "" || strings.Contains(voice, "-") {
		return defaultOpenAIVoice
	}
	return voice
}

func (o *OpenAIBackend) Synthesize(ctx context.Context, params Params) ([]byte, error) {
	resp, err := textgen.NewOpenAIClient(o.config).Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Input:          params.Text,
		Voice:          openai.AudioSpeechNewParamsVoice(openAIVoice(params.Voice)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(params.SpeakingRate),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI speech error: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAI speech body: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("OpenAI speech returned no audio")
	}
	return audio, nil
}
