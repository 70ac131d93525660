package api

import (
	"github.com/Egham-7/bedtime-stories/internal/services/auth"
	"github.com/Egham-7/bedtime-stories/internal/services/billing"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const stripeSignatureHeader = "Stripe-Signature"

type BillingHandler struct {
	stripeService *billing.StripeService
	subscriptions *billing.SubscriptionStore
}

func NewBillingHandler(stripeService *billing.StripeService, subscriptions *billing.SubscriptionStore) *BillingHandler {
	return &BillingHandler{
		stripeService: stripeService,
		subscriptions: subscriptions,
	}
}

// CreateCheckoutSession creates a Stripe subscription checkout for the caller
func (h *BillingHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req billing.CheckoutParams
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}
	if req.UserID == "" {
		req.UserID = auth.GetUserID(c)
	}

	url, err := h.stripeService.CreateCheckoutSession(c.UserContext(), req)
	if err != nil {
		return response.Error(c, reqID, err)
	}

	fiberlog.Infof("[%s] Created checkout session for user %s", reqID, req.UserID)
	return c.JSON(fiber.Map{"url": url})
}

// HandleWebhook verifies and applies Stripe events. Without a webhook secret
// events are acknowledged and ignored.
func (h *BillingHandler) HandleWebhook(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	if !h.stripeService.WebhookConfigured() {
		fiberlog.Warnf("[%s] Stripe webhook received but no webhook secret is configured", reqID)
		return c.JSON(fiber.Map{"ok": true, "skipped": true})
	}

	signature := c.Get(stripeSignatureHeader)
	if signature == "" {
		return response.BadRequest(c, reqID, "Missing Stripe-Signature header")
	}

	// Body() is only valid for the handler's lifetime; the service may retain slices of it.
	payload := append([]byte(nil), c.Body()...)

	if err := h.stripeService.HandleWebhook(c.UserContext(), payload, signature); err != nil {
		return response.Error(c, reqID, err)
	}

	return c.JSON(fiber.Map{"received": true})
}

// Entitlements returns the caller's plan and what it unlocks
func (h *BillingHandler) Entitlements(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	entitlement, err := h.subscriptions.Entitlements(c.UserContext(), auth.GetUserID(c))
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, entitlement)
}
