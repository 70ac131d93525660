package builder

import "github.com/Egham-7/bedtime-stories/internal/models"

func (b *Builder) WithStripe(secretKey, webhookSecret string) *Builder {
	b.cfg.Billing.SecretKey = secretKey
	b.cfg.Billing.WebhookSecret = webhookSecret
	return b
}

// WithPrice registers the Stripe price that sells plan at interval
func (b *Builder) WithPrice(plan models.PlanCode, interval models.BillingInterval, priceID string) *Builder {
	if b.cfg.Billing.Prices == nil {
		b.cfg.Billing.Prices = make(map[string]string)
	}
	b.cfg.Billing.Prices[string(plan)+"_"+string(interval)] = priceID
	return b
}

func (b *Builder) GetStripeConfig() (secretKey, webhookSecret string, configured bool) {
	return b.cfg.Billing.SecretKey, b.cfg.Billing.WebhookSecret, b.cfg.Billing.SecretKey != ""
}
