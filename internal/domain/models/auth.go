package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims are the claims the identity provider puts in its bearer
// tokens. Subject is the stable provider-issued uid.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Identity is the verified caller identity the core trusts.
type Identity struct {
	UserID string
	Email  string
}
