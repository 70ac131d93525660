package auth

import (
	"context"
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type ClerkAuthProvider struct {
	secretKey string
}

func NewClerkAuthProvider(secretKey string) *ClerkAuthProvider {
	clerk.SetKey(secretKey)

	return &ClerkAuthProvider{
		secretKey: secretKey,
	}
}

func (p *ClerkAuthProvider) ValidateToken(ctx context.Context, token string) (*clerk.SessionClaims, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return claims, nil
}

// VerifyToken returns the Clerk user id (the token subject)
func (p *ClerkAuthProvider) VerifyToken(ctx context.Context, token string) (string, error) {
	claims, err := p.ValidateToken(ctx, token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid token: missing subject")
	}
	return claims.Subject, nil
}
