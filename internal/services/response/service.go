package response

import (
	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Error writes err as a sanitized error body with the matching status.
// Causes are logged here and never sent to the client.
func Error(c *fiber.Ctx, requestID string, err error) error {
	appErr := models.SanitizeError(err)
	status := appErr.GetStatusCode()
	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("[%s] %s %s failed: %v", requestID, c.Method(), c.Path(), err)
	} else {
		fiberlog.Debugf("[%s] %s %s rejected: %v", requestID, c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Type:      string(appErr.Type),
			Message:   appErr.Message,
			Code:      appErr.Code,
			Retryable: appErr.Retryable,
		},
	})
}

// BadRequest sends a 400 validation error
func BadRequest(c *fiber.Ctx, requestID, message string) error {
	return Error(c, requestID, models.NewValidationError(message, nil))
}

// Success sends a 200 OK response with the provided data
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(data)
}
