package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// SimpleConfig is a plain Config implementation. Hosts construct it once at
// process start and pass it into each component constructor; there is no
// ambient settings lookup inside business logic.
type SimpleConfig struct {
	SigningKey               string
	SigningMethod            string
	AccessTokenExpiration    int // minutes
	RefreshTokenExpiration   int // days
	MaxSessions              int
	ElevationTokenExpiration int // minutes
	Issuer                   string
	Audience                 []string
	ConfirmationURL          string
	PasswordResetURL         string
	AdminPromotionURL        string
}

var _ Config = (*SimpleConfig)(nil)

// Defaults observed in production: 15 minute access tokens, 30 day refresh
// tokens, 5 concurrent sessions, 10 minute elevation window.
const (
	DefaultAccessTokenExpiration    = 15
	DefaultRefreshTokenExpiration   = 30
	DefaultMaxSessions              = 5
	DefaultElevationTokenExpiration = 10
	DefaultSigningMethod            = "HS256"
)

// NewConfig applies defaults for every zero field except the signing key,
// which has no safe default.
func NewConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:               signingKey,
		SigningMethod:            DefaultSigningMethod,
		AccessTokenExpiration:    DefaultAccessTokenExpiration,
		RefreshTokenExpiration:   DefaultRefreshTokenExpiration,
		MaxSessions:              DefaultMaxSessions,
		ElevationTokenExpiration: DefaultElevationTokenExpiration,
	}
}

// Validate reports fatal configuration errors. A missing signing key or an
// unsupported signing method should abort startup, not be caught per request.
func (c *SimpleConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("signing key is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	if c.SigningMethod != "" && c.SigningMethod != DefaultSigningMethod {
		return goerrors.New("unsupported signing method", goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_SIGNING_METHOD").
			WithMetadata(map[string]any{"method": c.SigningMethod})
	}

	if c.MaxSessions < 1 {
		return goerrors.New("max sessions must be at least 1", goerrors.CategoryBadInput)
	}

	return nil
}

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return DefaultSigningMethod
	}
	return c.SigningMethod
}

func (c *SimpleConfig) GetAccessTokenExpiration() int {
	if c.AccessTokenExpiration <= 0 {
		return DefaultAccessTokenExpiration
	}
	return c.AccessTokenExpiration
}

func (c *SimpleConfig) GetRefreshTokenExpiration() int {
	if c.RefreshTokenExpiration <= 0 {
		return DefaultRefreshTokenExpiration
	}
	return c.RefreshTokenExpiration
}

func (c *SimpleConfig) GetMaxSessions() int {
	if c.MaxSessions <= 0 {
		return DefaultMaxSessions
	}
	return c.MaxSessions
}

func (c *SimpleConfig) GetElevationTokenExpiration() int {
	if c.ElevationTokenExpiration <= 0 {
		return DefaultElevationTokenExpiration
	}
	return c.ElevationTokenExpiration
}

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetConfirmationURL() string {
	if c.ConfirmationURL == "" {
		return "/auth/confirm"
	}
	return c.ConfirmationURL
}

func (c *SimpleConfig) GetPasswordResetURL() string {
	if c.PasswordResetURL == "" {
		return "/auth/password-reset/confirm"
	}
	return c.PasswordResetURL
}

func (c *SimpleConfig) GetAdminPromotionURL() string {
	if c.AdminPromotionURL == "" {
		return "/admin/promote"
	}
	return c.AdminPromotionURL
}
