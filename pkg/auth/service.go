package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingTenantID      = errors.New("missing tenant ID in token")
	ErrTenantIDMismatch     = errors.New("tenant ID mismatch between token and URL")
)

// AuthService defines the interface for authentication operations.
// This abstraction enables clean separation between HTTP handling
// and authentication logic, making both easier to test.
type AuthService interface {
	// ValidateRequest extracts and validates a Bearer JWT from the
	// Authorization header. Returns the validated claims, the raw token
	// string, or an error.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// RequireTenantID validates that the claims contain a tenant ID.
	RequireTenantID(claims *Claims) error

	// ValidateTenantIDMatch ensures the URL tenant ID matches the token
	// tenant ID. If urlTenantID is empty, validation is skipped.
	ValidateTenantIDMatch(claims *Claims, urlTenantID string) error
}

type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client and logger.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, "", ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, "", ErrInvalidAuthFormat
	}

	claims, err := s.jwksClient.ValidateToken(parts[1])
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, "", err
	}

	return claims, parts[1], nil
}

func (s *authService) RequireTenantID(claims *Claims) error {
	if claims.TenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

func (s *authService) ValidateTenantIDMatch(claims *Claims, urlTenantID string) error {
	if urlTenantID != "" && claims.TenantID != urlTenantID {
		s.logger.Warn("Tenant ID mismatch",
			zap.String("url_tenant_id", urlTenantID),
			zap.String("token_tenant_id", claims.TenantID))
		return ErrTenantIDMismatch
	}
	return nil
}

var _ AuthService = (*authService)(nil)
