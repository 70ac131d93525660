package models

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig overrides the default sliding-window limiter
type RateLimitConfig struct {
	Max        int
	Expiration time.Duration
	KeyFunc    func(*fiber.Ctx) string // defaults to the client IP
}

type TimeoutConfig struct {
	Timeout time.Duration
}
