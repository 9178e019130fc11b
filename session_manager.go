package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionManager drives the per user session state machine: login, refresh
// token rotation, logout, and the concurrent session limit. Safe for
// concurrent use; the store is the only shared mutable state.
type SessionManager struct {
	repo     RepositoryManager
	tokens   TokenService
	cfg      Config
	logger   Logger
	activity ActivitySink
}

var _ Sessions = (*SessionManager)(nil)

func NewSessionManager(repo RepositoryManager, tokens TokenService, cfg Config) *SessionManager {
	return &SessionManager{
		repo:     repo,
		tokens:   tokens,
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *SessionManager) WithActivitySink(sink ActivitySink) *SessionManager {
	s.activity = normalizeActivitySink(sink)
	return s
}

// Login verifies credentials and opens a session. Unknown email and password
// mismatch produce the same error so callers cannot enumerate accounts. A
// user at the session limit is rejected, never silently evicted.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.Users().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.emitLoginFailure(ctx, "", email, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user during login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrCorruptCredential) {
			s.logger.Error("stored password hash is corrupt", "user_id", user.ID.String())
			return nil, ErrCorruptCredential
		}
		s.emitLoginFailure(ctx, user.ID.String(), email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.IsConfirmed {
		s.emitLoginFailure(ctx, user.ID.String(), email, ErrEmailNotConfirmed)
		return nil, ErrEmailNotConfirmed
	}

	var refresh *RefreshToken

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := s.repo.RefreshTokens().CountByUserTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count live sessions")
		}

		if count >= s.cfg.GetMaxSessions() {
			return ErrTooManySessions
		}

		refresh, err = s.repo.RefreshTokens().CreateTx(ctx, tx, &RefreshToken{
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(s.refreshTTL()),
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
		}

		return nil
	})

	if err != nil {
		if goerrors.Is(err, ErrTooManySessions) {
			s.emitLoginFailure(ctx, user.ID.String(), email, ErrTooManySessions)
			return nil, ErrTooManySessions
		}
		return nil, err
	}

	pair, err := s.mintPair(user.ID, refresh)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEventLoginSuccess, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return pair, nil
}

// Refresh rotates a refresh token: the old record is deleted and a new one
// inserted in a single transaction, so a reused token can never authenticate
// twice even when requests race.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var rotated *RefreshToken
	var userID uuid.UUID

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.RefreshTokens().GetByTokenTx(ctx, tx, refreshToken)
		if err != nil {
			if IsNoRows(err) {
				return ErrInvalidOrExpiredRefresh
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
		}

		if !record.Live(time.Now()) {
			// expired rows no longer authenticate; drop them on contact
			if _, err := s.repo.RefreshTokens().DeleteTx(ctx, tx, refreshToken); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired refresh token")
			}
			return ErrInvalidOrExpiredRefresh
		}

		userID = record.UserID

		if _, err := s.repo.RefreshTokens().DeleteTx(ctx, tx, refreshToken); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume refresh token")
		}

		rotated, err = s.repo.RefreshTokens().CreateTx(ctx, tx, &RefreshToken{
			UserID:    record.UserID,
			ExpiresAt: time.Now().Add(s.refreshTTL()),
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist rotated refresh token")
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	pair, err := s.mintPair(userID, rotated)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEventTokenRefresh, userID.String(), nil)

	return pair, nil
}

// Logout consumes the refresh token. An unknown token is reported, not
// silently ignored.
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	var userID string

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.RefreshTokens().GetByTokenTx(ctx, tx, refreshToken)
		if err != nil {
			if IsNoRows(err) {
				return ErrNoActiveSession
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
		}

		userID = record.UserID.String()

		deleted, err := s.repo.RefreshTokens().DeleteTx(ctx, tx, refreshToken)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
		}

		if !deleted {
			return ErrNoActiveSession
		}

		return nil
	})

	if err != nil {
		return err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEventLogout, userID, nil)

	return nil
}

// LogoutAll drops every session the user holds. Used after password reset
// and for explicit "sign out everywhere".
func (s *SessionManager) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.repo.RefreshTokens().DeleteByUserTx(ctx, tx, userID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user sessions")
		}
		return nil
	})

	if err != nil {
		return err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEventLogoutAll, userID.String(), nil)

	return nil
}

// ResolveCurrentUser verifies an access token and returns the subject's row.
// The confirmation flag is re-checked against the store on every call, so
// revoking confirmation takes effect immediately, not at token expiry.
func (s *SessionManager) ResolveCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.Validate(accessToken, PurposeAccess)
	if err != nil {
		return nil, err
	}

	subject, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.repo.Users().GetByID(ctx, subject.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve token subject")
	}

	if !user.IsConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	return user, nil
}

func (s *SessionManager) mintPair(userID uuid.UUID, refresh *RefreshToken) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.Issue(userID.String(), PurposeAccess)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		TokenType:        "bearer",
		RefreshToken:     refresh.Token,
		AccessExpiresAt:  expiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *SessionManager) refreshTTL() time.Duration {
	return time.Duration(s.cfg.GetRefreshTokenExpiration()) * 24 * time.Hour
}

func (s *SessionManager) emitLoginFailure(ctx context.Context, userID, email string, cause error) {
	emitActivity(ctx, s.activity, s.logger, ActivityEventLoginFailure, userID, map[string]any{
		"email": email,
		"error": cause.Error(),
	})
}
