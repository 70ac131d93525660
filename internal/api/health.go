package api

import (
	"context"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/config"
	"github.com/Egham-7/bedtime-stories/internal/services/database"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not_configured"

	envPresent = "present"
	envMissing = "missing"

	healthCheckTimeout = 2 * time.Second
)

// HealthHandler handles health check requests
type HealthHandler struct {
	cfg         *config.Config
	redisClient *redis.Client
	db          *database.DB
}

// NewHealthHandler creates a new health check handler; redisClient and db may be nil
func NewHealthHandler(cfg *config.Config, redisClient *redis.Client, db *database.DB) *HealthHandler {
	return &HealthHandler{
		cfg:         cfg,
		redisClient: redisClient,
		db:          db,
	}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	redisStatus := h.checkRedis(c.UserContext())
	databaseStatus := h.checkDatabase(c.UserContext())

	overallStatus := statusHealthy
	statusCode := fiber.StatusOK

	if redisStatus == statusUnhealthy || databaseStatus == statusUnhealthy {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	response := fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"redis":    redisStatus,
			"database": databaseStatus,
		},
		"env": fiber.Map{
			"GEMINI_API_KEY":    presence(h.cfg.Providers.Text.Gemini.IsConfigured()),
			"TTS_CREDENTIALS":   presence(h.cfg.HasSpeech()),
			"STRIPE_SECRET_KEY": presence(h.cfg.HasStripe()),
		},
	}

	return c.Status(statusCode).JSON(response)
}

// checkRedis verifies Redis connectivity
func (h *HealthHandler) checkRedis(ctx context.Context) string {
	if h.redisClient == nil {
		return statusNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		return statusUnhealthy
	}

	return statusHealthy
}

// checkDatabase verifies the database answers a ping
func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return statusNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return statusUnhealthy
	}

	return statusHealthy
}

func presence(ok bool) string {
	if ok {
		return envPresent
	}
	return envMissing
}
