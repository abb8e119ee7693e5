package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Email     string
	IsAdmin   bool
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. Identity
// provisioning lives outside this service; the claims are the only identity
// surface the API trusts.
type AccessTokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}
