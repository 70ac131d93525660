package api

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/imagegen"
	"github.com/Egham-7/bedtime-stories/internal/services/speech"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImageBackend struct {
	images [][]byte
	err    error
	prompt string
	ratio  string
}

func (s *stubImageBackend) GenerateImages(_ context.Context, _ string, prompt string, _ int, aspectRatio string) ([][]byte, error) {
	s.prompt = prompt
	s.ratio = aspectRatio
	return s.images, s.err
}

type stubSpeechBackend struct {
	audio []byte
	err   error
	calls int
}

func (s *stubSpeechBackend) Name() string { return "stub" }

func (s *stubSpeechBackend) Synthesize(_ context.Context, _ speech.Params) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

func mediaApp(images *imagegen.Renderer, narrator *speech.Service) *fiber.App {
	h := NewMediaHandler(images, narrator)
	return newTestApp(func(app *fiber.App) {
		app.Post("/api/art", h.Art)
		app.Post("/api/tts", h.TTS)
		app.Post("/api/tts/audio", h.TTSAudio)
	})
}

func TestArt(t *testing.T) {
	t.Run("placeholder without a key", func(t *testing.T) {
		app := mediaApp(imagegen.NewWithBackend(models.ProviderConfig{}, &stubImageBackend{}, nil), nil)

		resp, body := call(t, app, fiber.MethodPost, "/api/art", map[string]any{"prompt": "Noah's ark"}, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"placeholder":true}`, string(body))
	})

	t.Run("empty prompt", func(t *testing.T) {
		app := mediaApp(nil, nil)

		resp, _ := call(t, app, fiber.MethodPost, "/api/art", map[string]any{"prompt": "  "}, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rendered", func(t *testing.T) {
		backend := &stubImageBackend{images: [][]byte{[]byte("png-bytes")}}
		app := mediaApp(imagegen.NewWithBackend(models.ProviderConfig{APIKey: "key"}, backend, nil), nil)

		resp, body := call(t, app, fiber.MethodPost, "/api/art", map[string]any{"prompt": "Noah's ark", "size": "768x1024"}, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		result := decode[models.ImageResult](t, body)
		assert.Equal(t, imagegen.DefaultModel, result.Model)
		assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte("png-bytes"))}, result.Images)
		assert.Equal(t, models.ImageSize{Width: 768, Height: 1024}, result.Size)
		assert.Equal(t, "3:4", backend.ratio)
		assert.Equal(t, "Noah's ark"+imagegen.StyleSuffix, backend.prompt)
	})

	t.Run("no images is an upstream error", func(t *testing.T) {
		app := mediaApp(imagegen.NewWithBackend(models.ProviderConfig{APIKey: "key"}, &stubImageBackend{}, nil), nil)

		resp, _ := call(t, app, fiber.MethodPost, "/api/art", map[string]any{"prompt": "Noah's ark"}, nil)
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	})
}

func TestTTS(t *testing.T) {
	t.Run("fallback when unconfigured", func(t *testing.T) {
		app := mediaApp(nil, speech.NewService(nil, nil, nil))

		resp, body := call(t, app, fiber.MethodPost, "/api/tts", map[string]any{"text": "Good night"}, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"fallback":true}`, string(body))
	})

	t.Run("empty text", func(t *testing.T) {
		app := mediaApp(nil, speech.NewService(nil, nil, nil))

		resp, _ := call(t, app, fiber.MethodPost, "/api/tts", map[string]any{"text": ""}, nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("synthesized", func(t *testing.T) {
		app := mediaApp(nil, speech.NewService(&stubSpeechBackend{audio: []byte("ID3")}, nil, nil))

		resp, body := call(t, app, fiber.MethodPost, "/api/tts", map[string]any{"text": "Good night", "minutes": 30}, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("ID3")), decode[models.AudioRef](t, body).MP3Base64)
	})

	t.Run("upstream failure falls back", func(t *testing.T) {
		app := mediaApp(nil, speech.NewService(&stubSpeechBackend{err: errors.New("quota exceeded")}, nil, nil))

		resp, body := call(t, app, fiber.MethodPost, "/api/tts", map[string]any{"text": "Good night"}, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		got := decode[map[string]any](t, body)
		assert.Equal(t, true, got["fallback"])
		assert.NotEmpty(t, got["error"])
		assert.NotContains(t, string(body), "quota exceeded")
	})
}

func TestTTSAudio(t *testing.T) {
	backend := &stubSpeechBackend{audio: []byte("ID3-audio")}
	app := mediaApp(nil, speech.NewService(backend, nil, nil))

	resp, body := call(t, app, fiber.MethodPost, "/api/tts/audio", map[string]any{"text": "Good night", "lang": "es"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "public, max-age=31536000, immutable", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, []byte("ID3-audio"), body)

	unconfigured := mediaApp(nil, speech.NewService(nil, nil, nil))
	resp, _ = call(t, unconfigured, fiber.MethodPost, "/api/tts/audio", map[string]any{"text": "Good night"}, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	failing := mediaApp(nil, speech.NewService(&stubSpeechBackend{err: errors.New("boom")}, nil, nil))
	resp, _ = call(t, failing, fiber.MethodPost, "/api/tts/audio", map[string]any{"text": "Good night"}, nil)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
