// Package auth provides JWT-based authentication for the context graph API.
// It validates tokens issued by the operator's identity provider using JWKS
// endpoints and binds every request to the tenant named in the token.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims the engine consumes.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the tenant binding.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tid,omitempty"`   // Tenant identifier the token is scoped to
	Email    string   `json:"email,omitempty"` // Operator email address
	Roles    []string `json:"roles,omitempty"` // Roles within the tenant
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// ExtractClaimsFromContext extracts tenant ID and user ID from JWT claims
// in context. Returns error if not authenticated or claims are incomplete.
func ExtractClaimsFromContext(ctx context.Context) (string, string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "", "", fmt.Errorf("authentication required: no claims in context")
	}

	if claims.TenantID == "" {
		return "", "", fmt.Errorf("missing tenant ID in JWT claims")
	}

	userID := claims.Subject
	if userID == "" {
		return "", "", fmt.Errorf("missing user ID in JWT claims")
	}

	return claims.TenantID, userID, nil
}
