package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Egham-7/bedtime-stories/internal/services/request"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	svix "github.com/svix/svix-webhooks/go"
)

// UserPurger removes everything a store holds for one user
type UserPurger interface {
	DeleteUser(ctx context.Context, userID string) error
}

type ClerkWebhookHandler struct {
	webhookSecret string
	purgers       []UserPurger
}

func NewClerkWebhookHandler(webhookSecret string, purgers ...UserPurger) *ClerkWebhookHandler {
	return &ClerkWebhookHandler{
		webhookSecret: webhookSecret,
		purgers:       purgers,
	}
}

type ClerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ClerkUserData struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *ClerkWebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)
	payload := append([]byte(nil), c.Body()...)

	headers := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	wh, err := svix.NewWebhook(h.webhookSecret)
	if err != nil {
		fiberlog.Errorf("[%s] Failed to initialize Clerk webhook verifier: %v", reqID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to initialize webhook verifier",
		})
	}

	if err := wh.Verify(payload, headers); err != nil {
		fiberlog.Warnf("[%s] Rejected Clerk webhook: %v", reqID, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	var event ClerkWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON payload",
		})
	}

	switch event.Type {
	case "user.deleted":
		if err := h.handleUserDeleted(c.UserContext(), event.Data); err != nil {
			fiberlog.Errorf("[%s] Failed to process user.deleted: %v", reqID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process user.deleted event",
			})
		}
		fiberlog.Infof("[%s] Purged data for deleted user", reqID)
	default:
		fiberlog.Debugf("[%s] Ignoring Clerk event %s", reqID, event.Type)
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}

func (h *ClerkWebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var user ClerkUserData
	if err := json.Unmarshal(data, &user); err != nil {
		return err
	}
	if user.ID == "" {
		return nil
	}

	for _, purger := range h.purgers {
		if err := purger.DeleteUser(ctx, user.ID); err != nil {
			return err
		}
	}
	return nil
}
