package builder

import "github.com/Egham-7/bedtime-stories/internal/models"

// WithClerkAuth verifies bearer tokens with Clerk and accepts its user webhooks
func (b *Builder) WithClerkAuth(secretKey, webhookSecret string) *Builder {
	b.cfg.Auth.ClerkConfig = &models.ClerkAuthConfig{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
	}
	return b
}

// WithHeaderAuth trusts the X-User-ID header, for local development
func (b *Builder) WithHeaderAuth() *Builder {
	b.cfg.Auth.ClerkConfig = nil
	return b
}

func (b *Builder) GetClerkWebhookSecret() (string, bool) {
	if b.cfg.Auth.ClerkConfig != nil && b.cfg.Auth.ClerkConfig.WebhookSecret != "" {
		return b.cfg.Auth.ClerkConfig.WebhookSecret, true
	}
	return "", false
}
