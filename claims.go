package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose restricts which verifier may accept a signed token. Every
// consumer checks it explicitly; a confirmation token must be rejected by the
// access gate even when signature and expiry are valid.
type TokenPurpose string

const (
	PurposeAccess            TokenPurpose = "access"
	PurposeEmailConfirmation TokenPurpose = "email-confirmation"
	PurposePasswordReset     TokenPurpose = "password-reset"
	PurposeAdminElevation    TokenPurpose = "admin-elevation"
)

// TokenClaims is the payload of every signed bearer token: subject, purpose,
// an optional scope claim, and expiry. Tokens are never persisted; validity
// is proven by signature and expiry alone.
type TokenClaims struct {
	jwt.RegisteredClaims
	Purpose TokenPurpose `json:"purpose,omitempty"`
	Scope   string       `json:"scope,omitempty"`
}

// UserID returns the subject claim.
func (c *TokenClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *TokenClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
