package auth

import "context"

// TokenVerifier resolves a bearer token to the user it was issued to
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// AnonymousUserID owns the state of callers that present no identity
const AnonymousUserID = "anon-local"

// UserIDHeader carries a caller id when no identity provider is configured
const UserIDHeader = "X-User-ID"
