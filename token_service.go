package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey     []byte
	accessTokenTTL time.Duration
	issuer         string
	audience       jwt.ClaimStrings
	logger         Logger
}

// NewTokenService creates a TokenService from config. It panics on a missing
// signing key or an unsupported signing method: both are fatal configuration
// errors and should abort startup rather than surface per request.
func NewTokenService(cfg Config) *TokenServiceImpl {
	if cfg.GetSigningKey() == "" {
		panic("auth: token service requires a signing key")
	}

	if method := cfg.GetSigningMethod(); method != "" && method != DefaultSigningMethod {
		panic(fmt.Sprintf("auth: unsupported signing method %q", method))
	}

	return &TokenServiceImpl{
		signingKey:     []byte(cfg.GetSigningKey()),
		accessTokenTTL: time.Duration(cfg.GetAccessTokenExpiration()) * time.Minute,
		issuer:         cfg.GetIssuer(),
		audience:       jwt.ClaimStrings(cfg.GetAudience()),
		logger:         defLogger{},
	}
}

func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// TokenOption tweaks a single issuance.
type TokenOption func(*TokenClaims)

// WithScope sets the scope claim on the minted token.
func WithScope(scope string) TokenOption {
	return func(c *TokenClaims) {
		c.Scope = scope
	}
}

// WithTokenID pins the JTI instead of generating one.
func WithTokenID(jti string) TokenOption {
	return func(c *TokenClaims) {
		c.ID = jti
	}
}

// WithTTL overrides the default access token TTL.
func WithTTL(ttl time.Duration) TokenOption {
	return func(c *TokenClaims) {
		now := c.IssuedAt.Time
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
}

// Issue serializes {subject, purpose, scope?, exp} and signs it with the
// process wide key. Returns the compact token and its expiry.
func (ts *TokenServiceImpl) Issue(subject string, purpose TokenPurpose, opts ...TokenOption) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTokenTTL)),
		},
		Purpose: purpose,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(claims)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Validate checks signature integrity first, then expiry, then the purpose
// and structural claims. A valid signature with the wrong purpose is still a
// rejection: the purpose claim is part of the contract.
func (ts *TokenServiceImpl) Validate(raw string, purpose TokenPurpose) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	if claims.Purpose != purpose {
		ts.logger.Warn("token purpose mismatch", "want", purpose, "got", claims.Purpose)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
