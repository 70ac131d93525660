package imagegen

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

const (
	DefaultModel = "imagen-3.0-generate-002"
	StyleSuffix  = " | style: soft, watercolor, gentle bedtime palette, child-safe, low contrast"
	MIMEPNG      = "image/png"

	maxImages = 4
)

// Backend renders raw images for a fully styled prompt
type Backend interface {
	GenerateImages(ctx context.Context, model, prompt string, n int, aspectRatio string) ([][]byte, error)
}

// Renderer turns illustration prompts into base64 PNGs
type Renderer struct {
	config   models.ProviderConfig
	model    string
	backend  Backend
	recorder *metrics.Recorder
}

// New creates a renderer backed by Imagen through the Gemini API
func New(config models.ProviderConfig, recorder *metrics.Recorder) *Renderer {
	return NewWithBackend(config, &genaiBackend{config: config}, recorder)
}

// NewWithBackend creates a renderer over a custom backend
func NewWithBackend(config models.ProviderConfig, backend Backend, recorder *metrics.Recorder) *Renderer {
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	return &Renderer{config: config, model: model, backend: backend, recorder: recorder}
}

// Configured reports whether an API key is present
func (r *Renderer) Configured() bool {
	return r != nil && r.config.IsConfigured()
}

// ClampCount keeps n within 1..4
func ClampCount(n int) int {
	return min(max(n, 1), maxImages)
}

// Render produces up to four styled images for req
func (r *Renderer) Render(ctx context.Context, req models.ImageRequest) (*models.ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, models.NewValidationError("prompt required", nil)
	}
	if !r.Configured() {
		return nil, models.NewNotConfiguredError("image generation")
	}

	size := models.ParseImageSize(req.Size)
	n := ClampCount(req.N)

	start := time.Now()
	raw, err := r.backend.GenerateImages(ctx, r.model, prompt+StyleSuffix, n, size.AspectRatio())
	duration := time.Since(start)
	if err != nil {
		r.recorder.ObserveUpstream("image", models.ProviderGemini, metrics.OutcomeError, duration)
		return nil, models.NewProviderError("imagen", "image generation failed", err)
	}

	images := make([]string, 0, len(raw))
	for _, img := range raw {
		if len(img) > 0 {
			images = append(images, base64.StdEncoding.EncodeToString(img))
		}
	}
	if len(images) == 0 {
		r.recorder.ObserveUpstream("image", models.ProviderGemini, metrics.OutcomeError, duration)
		return nil, models.NewProviderError("imagen", "no images returned", nil)
	}

	r.recorder.ObserveUpstream("image", models.ProviderGemini, metrics.OutcomeSuccess, duration)
	fiberlog.Debugf("Rendered %d image(s) with %s in %v", len(images), r.model, duration)

	return &models.ImageResult{
		Model:  r.model,
		Images: images,
		MIME:   MIMEPNG,
		Size:   size,
	}, nil
}

// DataURL renders a single image and returns it as a data URL
func (r *Renderer) DataURL(ctx context.Context, prompt string) (string, error) {
	result, err := r.Render(ctx, models.ImageRequest{Prompt: prompt, N: 1})
	if err != nil {
		return "", err
	}
	return "data:" + result.MIME + ";base64," + result.Images[0], nil
}

type genaiBackend struct {
	config models.ProviderConfig
}

func (b *genaiBackend) GenerateImages(ctx context.Context, model, prompt string, n int, aspectRatio string) ([][]byte, error) {
	client, err := textgen.NewGenAIClient(ctx, b.config)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(n),
		AspectRatio:    aspectRatio,
		OutputMIMEType: MIMEPNG,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(resp.GeneratedImages))
	for _, generated := range resp.GeneratedImages {
		if generated != nil && generated.Image != nil {
			out = append(out, generated.Image.ImageBytes)
		}
	}
	return out, nil
}
