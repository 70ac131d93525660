package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server    models.ServerConfig    `yaml:"server"`
	Providers models.ProvidersConfig `yaml:"providers"`
	Fallback  models.FallbackConfig  `yaml:"fallback"`
	Retry     models.RetryConfig     `yaml:"retry"`
	Cache     models.CacheConfig     `yaml:"cache"`
	Database  *models.DatabaseConfig `yaml:"database,omitempty"`
	Billing   models.StripeConfig    `yaml:"billing"`
	Auth      models.AuthConfig      `yaml:"auth"`
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration after substituting environment variables
func Parse(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills values that other sections derive from. It is idempotent.
func (c *Config) ApplyDefaults() {
	order := make([]string, 0, len(c.Providers.Text.Order))
	for _, name := range c.Providers.Text.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		order = []string{models.ProviderGemini, models.ProviderAnthropic, models.ProviderOpenAI}
	}
	c.Providers.Text.Order = order

	c.Providers.Speech.Provider = strings.ToLower(strings.TrimSpace(c.Providers.Speech.Provider))

	// Imagen shares the Gemini key unless one is given explicitly
	if c.Providers.Image.APIKey == "" {
		c.Providers.Image.APIKey = c.Providers.Text.Gemini.APIKey
	}

	if c.Billing.AppURL == "" {
		c.Billing.AppURL = c.Server.AppURL
	}
	c.Billing.AppURL = strings.TrimRight(c.Billing.AppURL, "/")

	if c.Cache.Backend == "" {
		c.Cache.Backend = models.CacheBackendMemory
	}
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// GetNormalizedLogLevel returns the log level in lowercase for consistent comparison
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(c.Server.LogLevel)
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// HasTextProvider reports whether any provider in the fallback order has credentials
func (c *Config) HasTextProvider() bool {
	for _, name := range c.Providers.Text.Order {
		if p, ok := c.Providers.Text.Get(name); ok && p.IsConfigured() {
			return true
		}
	}
	return false
}

// HasStripe reports whether checkout sessions can be created
func (c *Config) HasStripe() bool {
	return c.Billing.SecretKey != ""
}

// HasSpeech reports whether a speech backend has credentials
func (c *Config) HasSpeech() bool {
	return c.Providers.Speech.IsConfigured()
}

// HasClerk reports whether bearer tokens are verified with Clerk
func (c *Config) HasClerk() bool {
	return c.Auth.ClerkConfig != nil && c.Auth.ClerkConfig.SecretKey != ""
}

// Validate checks if all required configuration values are set
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "server.port")
	}
	if c.Server.AllowedOrigins == "" {
		missing = append(missing, "server.allowed_origins")
	}

	for _, name := range c.Providers.Text.Order {
		if _, ok := c.Providers.Text.Get(name); !ok {
			missing = append(missing, "providers.text.order: unknown provider "+name)
		}
	}

	switch c.Providers.Speech.Provider {
	case "", models.ProviderGoogle, models.ProviderOpenAI:
	default:
		missing = append(missing, "providers.speech.provider: unsupported "+c.Providers.Speech.Provider)
	}

	switch c.Fallback.Mode {
	case "", models.FallbackModeSequential, models.FallbackModeRace:
	default:
		missing = append(missing, "fallback.mode: unsupported "+string(c.Fallback.Mode))
	}

	switch c.Cache.Backend {
	case "", models.CacheBackendMemory:
	case models.CacheBackendRedis:
		if c.Cache.RedisURL == "" {
			missing = append(missing, "cache.redis_url")
		}
	default:
		missing = append(missing, "cache.backend: unsupported "+string(c.Cache.Backend))
	}

	if c.Database != nil && c.Database.Type == "" {
		missing = append(missing, "database.type")
	}

	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration fields: " + strings.Join(e.MissingFields, ", ")
}
