package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Caller visible error kinds. Each maps to a stable status at the HTTP
// boundary, distinct from generic server failure. Lookup and validation
// failures are translated into one of these and never retried.
var (
	// ErrInvalidCredentials is returned for unknown email or password
	// mismatch alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIALS")

	// ErrEmailNotConfirmed blocks authentication until the confirmation
	// link has been consumed.
	ErrEmailNotConfirmed = goerrors.New("email address not confirmed", goerrors.CategoryAuth).
				WithTextCode("EMAIL_NOT_CONFIRMED")

	// ErrEmailTaken is returned when registering an email that already
	// has an account.
	ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
			WithTextCode("EMAIL_TAKEN")

	// ErrRegistrationFailed signals a persistence conflict while saving a
	// new account, after rollback.
	ErrRegistrationFailed = goerrors.New("could not complete registration", goerrors.CategoryInternal).
				WithTextCode("REGISTRATION_FAILED")

	// ErrTooManySessions rejects a login that would exceed the live
	// refresh token limit. We never evict the oldest session silently.
	ErrTooManySessions = goerrors.New("too many concurrent sessions", goerrors.CategoryRateLimit).
				WithTextCode("TOO_MANY_SESSIONS")

	// ErrInvalidOrExpiredRefresh covers unknown, rotated, and expired
	// refresh tokens.
	ErrInvalidOrExpiredRefresh = goerrors.New("invalid or expired refresh token", goerrors.CategoryAuth).
					WithTextCode("INVALID_REFRESH")

	// ErrNoActiveSession is returned by logout when the refresh token has
	// no matching record.
	ErrNoActiveSession = goerrors.New("no active session for token", goerrors.CategoryNotFound).
				WithTextCode("NO_ACTIVE_SESSION")

	// ErrInvalidToken covers confirmation and elevation tokens that are
	// unknown, already consumed, or carry the wrong purpose.
	ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
			WithTextCode("INVALID_TOKEN")

	// ErrInvalidOrExpiredReset covers unknown reset tokens and tokens
	// past their stored expiry.
	ErrInvalidOrExpiredReset = goerrors.New("invalid or expired reset token", goerrors.CategoryAuth).
					WithTextCode("INVALID_RESET")

	// ErrForbidden is the scope gate failure.
	ErrForbidden = goerrors.New("missing required scope", goerrors.CategoryAuthz).
			WithTextCode("FORBIDDEN")

	// ErrCorruptCredential signals a stored password hash that bcrypt
	// cannot parse. Never a crash.
	ErrCorruptCredential = goerrors.New("stored credential is corrupt", goerrors.CategoryInternal).
				WithTextCode("CORRUPT_CREDENTIAL")

	// ErrTokenExpired is the signed token expiry failure.
	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED")

	// ErrTokenMalformed covers signature mismatch and structural claim
	// failures.
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED")

	// ErrIdentityNotFound is returned when a token subject no longer
	// resolves to a user row.
	ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
				WithTextCode("IDENTITY_NOT_FOUND")

	// ErrScopeNotFound is returned when granting or revoking an unknown
	// scope name.
	ErrScopeNotFound = goerrors.New("scope not found", goerrors.CategoryNotFound).
				WithTextCode("SCOPE_NOT_FOUND")

	// ErrScopeExists rejects creating a scope whose name is taken.
	ErrScopeExists = goerrors.New("scope already exists", goerrors.CategoryConflict).
			WithTextCode("SCOPE_EXISTS")

	// ErrNoEmptyString rejects empty passwords before hashing.
	ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
				WithTextCode("EMPTY_VALUE")

	// ErrMismatchedHashAndPassword is the internal bcrypt mismatch; the
	// session manager folds it into ErrInvalidCredentials.
	ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
					WithTextCode("PASSWORD_MISMATCH")
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return goerrors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for malformed or tampered tokens
func IsMalformedError(err error) bool {
	return goerrors.Is(err, ErrTokenMalformed)
}
