package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetAccessTokenExpiration() int
	GetRefreshTokenExpiration() int
	GetMaxSessions() int
	GetElevationTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetConfirmationURL() string
	GetPasswordResetURL() string
	GetAdminPromotionURL() string
}

// TokenService signs and verifies purpose bound bearer tokens
type TokenService interface {
	Issue(subject string, purpose TokenPurpose, opts ...TokenOption) (string, time.Time, error)
	Validate(raw string, purpose TokenPurpose) (*TokenClaims, error)
}

// Mailer dispatches templated notification emails. The core supplies the
// token bearing link, the implementation owns transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, link string) error
}

// Sessions is the surface route handlers use to authenticate requests.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	ResolveCurrentUser(ctx context.Context, accessToken string) (*User, error)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	RefreshToken     string    `json:"-"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
