package models

import "strings"

// StripeConfig holds Stripe credentials and the plan price catalogue
type StripeConfig struct {
	SecretKey     string            `json:"-" yaml:"secret_key"`
	WebhookSecret string            `json:"-" yaml:"webhook_secret"`
	AppURL        string            `json:"app_url,omitzero" yaml:"app_url"`
	Prices        map[string]string `json:"prices,omitzero" yaml:"prices"` // e.g. BASIC_monthly, FAMILY_yearly, monthly, yearly
}

// PriceFor resolves the price id for a plan and interval, falling back to the generic interval price
func (s StripeConfig) PriceFor(plan PlanCode, interval BillingInterval) string {
	if price := s.Prices[string(plan)+"_"+string(interval)]; price != "" {
		return price
	}
	return s.Prices[string(interval)]
}

// PlanForPrice maps a Stripe price id back to the plan that sells it
func (s StripeConfig) PlanForPrice(priceID string) (PlanCode, bool) {
	if priceID == "" {
		return "", false
	}
	for key, value := range s.Prices {
		if value != priceID {
			continue
		}
		plan, _, found := strings.Cut(key, "_"+string(IntervalMonthly))
		if !found {
			plan, _, found = strings.Cut(key, "_"+string(IntervalYearly))
		}
		if found && plan != "" {
			return PlanCode(plan), true
		}
		return PlanBasic, true
	}
	return "", false
}
