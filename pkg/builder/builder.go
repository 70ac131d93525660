package builder

import (
	"github.com/Egham-7/bedtime-stories/internal/config"
	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Builder assembles a server configuration in code instead of YAML
type Builder struct {
	cfg             *config.Config
	middlewares     []fiber.Handler
	rateLimitConfig *models.RateLimitConfig
	timeoutConfig   *models.TimeoutConfig
}

func New() *Builder {
	return &Builder{
		cfg: &config.Config{
			Server: models.ServerConfig{
				Port:           "8080",
				AllowedOrigins: "*",
				Environment:    "development",
				LogLevel:       "info",
			},
			Fallback: models.FallbackConfig{
				Mode:      models.FallbackModeSequential,
				TimeoutMs: 30000,
				CircuitBreaker: &models.CircuitBreakerConfig{
					FailureThreshold: 5,
					SuccessThreshold: 2,
					ResetAfterMs:     60000,
				},
			},
			Cache: models.CacheConfig{
				Backend: models.CacheBackendMemory,
				TTL:     models.DefaultCacheTTL,
			},
		},
		middlewares: []fiber.Handler{},
	}
}

// Build returns the configuration with derived defaults applied
func (b *Builder) Build() *config.Config {
	b.cfg.ApplyDefaults()
	return b.cfg
}

func (b *Builder) GetMiddlewares() []fiber.Handler {
	return b.middlewares
}

func (b *Builder) GetRateLimitConfig() *models.RateLimitConfig {
	return b.rateLimitConfig
}

func (b *Builder) GetTimeoutConfig() *models.TimeoutConfig {
	return b.timeoutConfig
}
