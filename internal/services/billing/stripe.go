package billing

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

const webhookSource = "stripe"

// CheckoutParams is the body of POST /api/billing/checkout
type CheckoutParams struct {
	Plan     string `json:"plan"`
	Interval string `json:"interval"`
	UserID   string `json:"userId,omitempty"`
}

type StripeService struct {
	cfg        models.StripeConfig
	store      *SubscriptionStore
	recorder   *metrics.Recorder
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeService(cfg models.StripeConfig, store *SubscriptionStore, recorder *metrics.Recorder) *StripeService {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}

	return &StripeService{
		cfg:        cfg,
		store:      store,
		recorder:   recorder,
		newSession: session.New,
	}
}

// Configured reports whether checkout sessions can be created
func (s *StripeService) Configured() bool {
	return s.cfg.SecretKey != ""
}

// WebhookConfigured reports whether webhook signatures can be verified
func (s *StripeService) WebhookConfigured() bool {
	return s.cfg.WebhookSecret != ""
}

// CreateCheckoutSession starts a subscription checkout and returns its URL
func (s *StripeService) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	if !s.Configured() {
		return "", models.NewNotConfiguredError("billing")
	}

	plan := models.PlanCode(strings.ToUpper(strings.TrimSpace(params.Plan)))
	if plan == "" {
		plan = models.PlanBasic
	}
	interval := models.ParseBillingInterval(params.Interval)

	price := s.cfg.PriceFor(plan, interval)
	if price == "" {
		return "", models.NewValidationError("Price not configured", nil)
	}

	appURL := strings.TrimRight(s.cfg.AppURL, "/")
	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(appURL + "/pricing?success=1"),
		CancelURL:  stripe.String(appURL + "/pricing?canceled=1"),
		Metadata: map[string]string{
			"userId":   params.UserID,
			"plan":     string(plan),
			"interval": string(interval),
			"priceId":  price,
		},
	}
	sessionParams.Context = ctx

	sess, err := s.newSession(sessionParams)
	if err != nil {
		return "", models.NewProviderError("stripe", "failed to create checkout session", err)
	}

	return sess.URL, nil
}

// HandleWebhook verifies and applies a Stripe event. A bad signature is a
// validation error and nothing is written.
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.recorder.ObserveWebhook(webhookSource, "unverified", metrics.OutcomeError)
		return models.NewValidationError("invalid webhook signature", err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = s.handleCheckoutSessionCompleted(ctx, event)
	case stripe.EventTypeInvoicePaid:
		err = s.handleInvoicePaid(ctx, event)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		err = s.handleSubscriptionUpdated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		fiberlog.Debugf("Ignoring Stripe event %s", event.Type)
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	s.recorder.ObserveWebhook(webhookSource, string(event.Type), outcome)
	return err
}

func (s *StripeService) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return models.NewValidationError("failed to parse checkout session", err)
	}

	userID := sess.Metadata["userId"]
	if userID == "" {
		userID = sess.ClientReferenceID
	}
	if userID == "" {
		fiberlog.Warnf("Checkout session %s has no userId, skipping", sess.ID)
		return nil
	}

	priceID := sess.Metadata["priceId"]
	if priceID == "" && sess.LineItems != nil && len(sess.LineItems.Data) > 0 && sess.LineItems.Data[0].Price != nil {
		priceID = sess.LineItems.Data[0].Price.ID
	}

	plan, ok := s.cfg.PlanForPrice(priceID)
	if !ok {
		plan = models.PlanBasic
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return models.NewInternalError("failed to load subscription", err)
	}
	sub.Plan = plan
	sub.Status = models.SubscriptionActive
	if sess.Customer != nil {
		sub.StripeCustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		sub.StripeSubscriptionID = sess.Subscription.ID
		if end := sess.Subscription.CurrentPeriodEnd; end > 0 {
			sub.CurrentPeriodEnd = unixTime(end)
		}
	}

	fiberlog.Infof("Checkout completed for %s: plan %s", userID, plan)
	return s.save(ctx, sub)
}

func (s *StripeService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return models.NewValidationError("failed to parse invoice", err)
	}
	if invoice.Subscription == nil {
		return nil
	}

	sub, err := s.store.FindByStripeSubscription(ctx, invoice.Subscription.ID)
	if err != nil {
		return models.NewInternalError("failed to load subscription", err)
	}
	if sub == nil {
		fiberlog.Warnf("Invoice %s paid for unknown subscription %s", invoice.ID, invoice.Subscription.ID)
		return nil
	}

	end := invoice.PeriodEnd
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Period != nil && line.Period.End > end {
				end = line.Period.End
			}
		}
	}
	if end > 0 && (sub.CurrentPeriodEnd == nil || unixTime(end).After(*sub.CurrentPeriodEnd)) {
		sub.CurrentPeriodEnd = unixTime(end)
	}
	sub.Status = models.SubscriptionActive

	return s.save(ctx, sub)
}

func (s *StripeService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return models.NewValidationError("failed to parse subscription", err)
	}

	sub, err := s.subscriptionFor(ctx, &stripeSub)
	if err != nil || sub == nil {
		return err
	}

	sub.Status = string(stripeSub.Status)
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 && stripeSub.Items.Data[0].Price != nil {
		if plan, ok := s.cfg.PlanForPrice(stripeSub.Items.Data[0].Price.ID); ok {
			sub.Plan = plan
		}
	}
	if stripeSub.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = unixTime(stripeSub.CurrentPeriodEnd)
	}

	return s.save(ctx, sub)
}

func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return models.NewValidationError("failed to parse subscription", err)
	}

	sub, err := s.subscriptionFor(ctx, &stripeSub)
	if err != nil || sub == nil {
		return err
	}

	fiberlog.Infof("Subscription %s deleted, downgrading %s to %s", stripeSub.ID, sub.UserID, models.PlanFree)
	sub.Plan = models.PlanFree
	sub.Status = models.SubscriptionCanceled
	return s.save(ctx, sub)
}

// subscriptionFor finds the local record by Stripe id, then by the userId metadata
func (s *StripeService) subscriptionFor(ctx context.Context, stripeSub *stripe.Subscription) (*models.Subscription, error) {
	sub, err := s.store.FindByStripeSubscription(ctx, stripeSub.ID)
	if err != nil {
		return nil, models.NewInternalError("failed to load subscription", err)
	}
	if sub != nil {
		return sub, nil
	}

	userID := stripeSub.Metadata["userId"]
	if userID == "" {
		fiberlog.Warnf("Stripe subscription %s has no local owner, skipping", stripeSub.ID)
		return nil, nil
	}

	sub, err = s.store.Get(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError("failed to load subscription", err)
	}
	sub.StripeSubscriptionID = stripeSub.ID
	if stripeSub.Customer != nil {
		sub.StripeCustomerID = stripeSub.Customer.ID
	}
	return sub, nil
}

func (s *StripeService) save(ctx context.Context, sub *models.Subscription) error {
	if err := s.store.Save(ctx, sub); err != nil {
		return models.NewInternalError("failed to persist subscription", err)
	}
	return nil
}

func unixTime(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}
