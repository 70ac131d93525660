package api

import (
	"strconv"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/auth"
	"github.com/Egham-7/bedtime-stories/internal/services/parental"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
)

// ParentalHandler manages parental controls and answers playback policy questions
type ParentalHandler struct {
	store *parental.Store
	now   func() time.Time
}

func NewParentalHandler(store *parental.Store) *ParentalHandler {
	return &ParentalHandler{store: store, now: time.Now}
}

// parentalView never exposes the PIN hash, only whether one is set
type parentalView struct {
	*models.ParentalSettings
	HasPIN bool `json:"hasPin"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func viewOf(settings *models.ParentalSettings) parentalView {
	return parentalView{ParentalSettings: settings, HasPIN: settings.PinHash != ""}
}

// Get handles GET /api/parental
func (h *ParentalHandler) Get(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	settings, err := h.store.Get(c.UserContext(), auth.GetUserID(c))
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, viewOf(settings))
}

// Save handles PUT /api/parental
func (h *ParentalHandler) Save(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	settings, err := h.store.Save(c.UserContext(), auth.GetUserID(c), c.Body())
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, viewOf(settings))
}

// SetPIN handles POST /api/parental/pin
func (h *ParentalHandler) SetPIN(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	if err := h.store.SetPIN(c.UserContext(), auth.GetUserID(c), req.PIN); err != nil {
		return response.Error(c, reqID, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// VerifyPIN handles POST /api/parental/pin/verify
func (h *ParentalHandler) VerifyPIN(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	ok, err := h.store.VerifyPIN(c.UserContext(), auth.GetUserID(c), req.PIN)
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return c.JSON(fiber.Map{"ok": ok})
}

// Policy handles GET /api/parental/policy?duration=&slug=&ages=&lang=&tz=.
// Bedtime windows are evaluated in tz (IANA name), defaulting to server time.
func (h *ParentalHandler) Policy(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	duration := models.DefaultMinutes
	if raw := c.Query("duration"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return response.BadRequest(c, reqID, "duration must be a positive number of minutes")
		}
		duration = n
	}

	now := h.now()
	if tz := c.Query("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return response.BadRequest(c, reqID, "Unknown time zone")
		}
		now = now.In(loc)
	}

	settings, err := h.store.Get(c.UserContext(), auth.GetUserID(c))
	if err != nil {
		return response.Error(c, reqID, err)
	}

	decision := parental.NewPolicy(*settings).Evaluate(parental.Query{
		Duration: duration,
		Slug:     c.Query("slug"),
		Ages:     parental.ParseAges(c.Query("ages")),
		Lang:     models.NormalizeLanguage(c.Query("lang")),
	}, now)

	return response.Success(c, decision)
}
