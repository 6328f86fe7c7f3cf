package auth

import "betty/internal/domain/models"

// TokenVerifier validates a bearer credential and extracts the caller
// identity. The core trusts this identity without re-verifying.
type TokenVerifier interface {
	// VerifyToken validates a token string and returns the identity.
	// Expired, invalid and malformed tokens all fail with
	// domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.Identity, error)

	// Close releases any resources held by the verifier (e.g. HTTP
	// connections for JWKS refresh).
	Close() error
}
