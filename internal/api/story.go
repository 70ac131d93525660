package api

import (
	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"
	"github.com/Egham-7/bedtime-stories/internal/services/story"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// cacheStateHeader reports whether a story came from the memo cache
const cacheStateHeader = "X-Cache-State"

// StoryHandler serves generated story text and scene bundles
type StoryHandler struct {
	stories *story.Service
}

func NewStoryHandler(stories *story.Service) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// Story handles POST /api/story. The cached JSON bytes are written as-is so
// repeated requests are byte-identical.
func (h *StoryHandler) Story(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req models.StoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	payload, state, err := h.stories.Story(c.UserContext(), req, reqID)
	if err != nil {
		return response.Error(c, reqID, err)
	}

	c.Set(cacheStateHeader, state.String())
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(payload)
}

// Generate handles POST /api/stories/generate
func (h *StoryHandler) Generate(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req models.SceneRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	bundle, err := h.stories.Generate(c.UserContext(), req, reqID)
	if err != nil {
		return response.Error(c, reqID, err)
	}

	fiberlog.Infof("[%s] Generated %d scenes for %s", reqID, len(bundle.Scenes), bundle.PassageRef)
	return response.Success(c, bundle)
}
