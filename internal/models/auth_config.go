package models

type AuthConfig struct {
	ClerkConfig *ClerkAuthConfig `json:"clerk,omitempty" yaml:"clerk,omitempty"`
}

type ClerkAuthConfig struct {
	SecretKey     string `json:"-" yaml:"secret_key"`
	WebhookSecret string `json:"-" yaml:"webhook_secret"`
}
