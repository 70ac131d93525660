package middleware

import (
	"slices"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/auth"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// AuthMiddleware resolves the caller's identity for the user-state routes
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	config   *AuthMiddlewareConfig
}

type AuthMiddlewareConfig struct {
	HeaderNames []string
	SkipPaths   []string
}

func DefaultAuthMiddlewareConfig() *AuthMiddlewareConfig {
	return &AuthMiddlewareConfig{
		HeaderNames: []string{"Authorization"},
		SkipPaths: []string{
			"/health",
			"/webhooks",
		},
	}
}

// NewAuthMiddleware builds the middleware; verifier is nil when Clerk is not configured
func NewAuthMiddleware(verifier auth.TokenVerifier, config *AuthMiddlewareConfig) *AuthMiddleware {
	if config == nil {
		config = DefaultAuthMiddlewareConfig()
	}
	if len(config.HeaderNames) == 0 {
		config.HeaderNames = []string{"Authorization"}
	}
	return &AuthMiddleware{
		verifier: verifier,
		config:   config,
	}
}

// Identify attaches an AuthContext to every request. With a verifier, a bearer
// token must verify; otherwise the X-User-ID header is trusted, and callers
// without either share the anonymous owner.
func (m *AuthMiddleware) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.shouldSkipPath(c.Path()) {
			return c.Next()
		}

		if m.verifier != nil {
			if token := m.extractToken(c); token != "" {
				userID, err := m.verifier.VerifyToken(c.UserContext(), token)
				if err != nil {
					requestID := request.GetRequestID(c)
					fiberlog.Warnf("[%s] Rejected bearer token: %v", requestID, err)
					return response.Error(c, requestID, models.NewAuthenticationError("invalid or expired token", err))
				}
				auth.SetAuthContext(c, &auth.AuthContext{Type: auth.AuthTypeClerk, UserID: userID})
				return c.Next()
			}
		}

		if userID := strings.TrimSpace(c.Get(auth.UserIDHeader)); userID != "" {
			auth.SetAuthContext(c, &auth.AuthContext{Type: auth.AuthTypeHeader, UserID: userID})
			return c.Next()
		}

		auth.SetAuthContext(c, &auth.AuthContext{Type: auth.AuthTypeAnonymous, UserID: auth.AnonymousUserID})
		return c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	for _, headerName := range m.config.HeaderNames {
		if header := c.Get(headerName); header != "" {
			if after, ok := strings.CutPrefix(header, "Bearer "); ok {
				return strings.TrimSpace(after)
			}
			return strings.TrimSpace(header)
		}
	}

	return ""
}

func (m *AuthMiddleware) shouldSkipPath(path string) bool {
	return slices.ContainsFunc(m.config.SkipPaths, func(skip string) bool {
		return strings.HasPrefix(path, skip)
	})
}
