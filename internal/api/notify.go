package api

import (
	"github.com/Egham-7/bedtime-stories/internal/services/leads"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// NotifyHandler collects launch notification signups
type NotifyHandler struct {
	leads *leads.Store
}

func NewNotifyHandler(store *leads.Store) *NotifyHandler {
	return &NotifyHandler{leads: store}
}

type notifyRequest struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// Notify handles POST /api/notify
func (h *NotifyHandler) Notify(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req notifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Valid email required")
	}
	if !leads.ValidEmail(req.Email) {
		return response.BadRequest(c, reqID, "Valid email required")
	}

	lead, err := h.leads.Create(c.UserContext(), req.Email, req.Plan, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return response.Error(c, reqID, err)
	}

	fiberlog.Infof("[%s] Recorded lead %s for plan %s", reqID, lead.ID, lead.Plan)
	return c.JSON(fiber.Map{"ok": true})
}
