package request

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// HeaderName carries the request id in both directions
	HeaderName = "X-Request-ID"
	// middlewareLocalKey is where fiber's requestid middleware stores the id
	middlewareLocalKey = "requestid"
	// requestIDLocalKey caches the resolved id for the rest of the request
	requestIDLocalKey = "request_id"
	// maxRequestIDLength is the maximum allowed length for request IDs
	maxRequestIDLength = 256
)

func sanitizeRequestID(reqID string) string {
	sanitized := strings.TrimSpace(reqID)
	if len(sanitized) > maxRequestIDLength {
		sanitized = sanitized[:maxRequestIDLength]
	}
	return sanitized
}

// GetRequestID returns the id used to prefix this request's logs. It prefers
// the X-Request-ID header, then the requestid middleware value, and generates
// one as a last resort.
func GetRequestID(c *fiber.Ctx) string {
	if cached, ok := c.Locals(requestIDLocalKey).(string); ok && cached != "" {
		return cached
	}

	requestID := sanitizeRequestID(c.Get(HeaderName))

	if requestID == "" {
		if str, ok := c.Locals(middlewareLocalKey).(string); ok {
			requestID = sanitizeRequestID(str)
		}
	}

	if requestID == "" {
		requestID = GenerateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

// GenerateRequestID creates a new random request ID
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}
