package auth

import (
	"github.com/gofiber/fiber/v2"
)

type AuthType string

const (
	AuthTypeClerk     AuthType = "clerk"
	AuthTypeHeader    AuthType = "header"
	AuthTypeAnonymous AuthType = "anonymous"
)

const authContextKey = "auth_context"

// AuthContext is the identity resolved for a request
type AuthContext struct {
	Type   AuthType
	UserID string
}

func (a *AuthContext) IsClerk() bool {
	return a.Type == AuthTypeClerk
}

func (a *AuthContext) IsAnonymous() bool {
	return a.Type == AuthTypeAnonymous
}

func SetAuthContext(c *fiber.Ctx, authCtx *AuthContext) {
	c.Locals(authContextKey, authCtx)
}

func GetAuthContext(c *fiber.Ctx) *AuthContext {
	authCtx, ok := c.Locals(authContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// GetUserID returns the caller's user id, falling back to the anonymous owner
func GetUserID(c *fiber.Ctx) string {
	authCtx := GetAuthContext(c)
	if authCtx == nil || authCtx.UserID == "" {
		return AnonymousUserID
	}
	return authCtx.UserID
}
