package api

import (
	"encoding/base64"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/imagegen"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"
	"github.com/Egham-7/bedtime-stories/internal/services/speech"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	mimeAudioMPEG       = "audio/mpeg"
	immutableAudioCache = "public, max-age=31536000, immutable"
)

// MediaHandler serves illustrations and narration audio
type MediaHandler struct {
	images *imagegen.Renderer
	speech *speech.Service
}

// NewMediaHandler wires the renderers; either may be unconfigured
func NewMediaHandler(images *imagegen.Renderer, narrator *speech.Service) *MediaHandler {
	return &MediaHandler{images: images, speech: narrator}
}

// Art handles POST /api/art. Without an image key the client draws its own
// placeholder art.
func (h *MediaHandler) Art(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req models.ImageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return response.BadRequest(c, reqID, "prompt required")
	}

	if !h.images.Configured() {
		fiberlog.Debugf("[%s] Image generation not configured, returning placeholder", reqID)
		return c.JSON(fiber.Map{"placeholder": true})
	}

	result, err := h.images.Render(c.UserContext(), req)
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, result)
}

// TTS handles POST /api/tts. Failures are reported as a fallback flag so the
// client can narrate with browser speech instead.
func (h *MediaHandler) TTS(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req models.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return response.BadRequest(c, reqID, "text is required")
	}

	if !h.speech.Configured() {
		return c.JSON(models.AudioRef{Fallback: true})
	}

	audio, err := h.speech.Synthesize(c.UserContext(), req)
	if err != nil {
		fiberlog.Warnf("[%s] Speech synthesis failed, client will fall back: %v", reqID, err)
		return c.JSON(fiber.Map{
			"fallback": true,
			"error":    models.SanitizeError(err).Message,
		})
	}

	return c.JSON(models.AudioRef{MP3Base64: base64.StdEncoding.EncodeToString(audio)})
}

// TTSAudio handles POST /api/tts/audio and streams the MP3 bytes directly
func (h *MediaHandler) TTSAudio(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req models.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	audio, err := h.speech.Synthesize(c.UserContext(), req)
	if err != nil {
		return response.Error(c, reqID, err)
	}

	c.Set(fiber.HeaderContentType, mimeAudioMPEG)
	c.Set(fiber.HeaderCacheControl, immutableAudioCache)
	return c.Send(audio)
}
