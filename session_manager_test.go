package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/amoryn/go-auth-core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(t *testing.T, cfg *auth.SimpleConfig) (*auth.SessionManager, auth.RepositoryManager) {
	t.Helper()
	repo := newTestRepo(t)
	tokens := auth.NewTokenService(cfg)
	return auth.NewSessionManager(repo, tokens, cfg), repo
}

func TestSessionManager_Login(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("returns both tokens on valid credentials", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "bearer", pair.TokenType)
		assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
	})

	t.Run("normalizes the email on lookup", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		_, err := sessions.Login(ctx, "  ALICE@Example.com ", "password1")
		assert.NoError(t, err)
	})

	t.Run("same error for unknown email and wrong password", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		_, unknownErr := sessions.Login(ctx, "nobody@example.com", "password1")
		_, wrongErr := sessions.Login(ctx, "alice@example.com", "wrong-password")

		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
	})

	t.Run("rejects unconfirmed account with correct password", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "pending@example.com", "password1", false)

		_, err := sessions.Login(ctx, "pending@example.com", "password1")
		assert.ErrorIs(t, err, auth.ErrEmailNotConfirmed)
	})

	t.Run("enforces the session limit without evicting", func(t *testing.T) {
		limited := testConfig()
		limited.MaxSessions = 2

		sessions, repo := newSessionManager(t, limited)
		user := seedUser(t, repo, "busy@example.com", "password1", true)

		for i := 0; i < 2; i++ {
			_, err := sessions.Login(ctx, "busy@example.com", "password1")
			require.NoError(t, err)
		}

		_, err := sessions.Login(ctx, "busy@example.com", "password1")
		assert.ErrorIs(t, err, auth.ErrTooManySessions)

		// both earlier sessions survive
		count, err := repo.RefreshTokens().CountByUserTx(ctx, repo.DB(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("expired sessions do not hold a slot", func(t *testing.T) {
		limited := testConfig()
		limited.MaxSessions = 1

		sessions, repo := newSessionManager(t, limited)
		user := seedUser(t, repo, "stale@example.com", "password1", true)

		_, err := repo.RefreshTokens().CreateTx(ctx, repo.DB(), &auth.RefreshToken{
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		_, err = sessions.Login(ctx, "stale@example.com", "password1")
		assert.NoError(t, err)
	})

	t.Run("emits activity events", func(t *testing.T) {
		sink := &capturingSink{}
		repo := newTestRepo(t)
		sessions := auth.NewSessionManager(repo, auth.NewTokenService(cfg), cfg).WithActivitySink(sink)
		seedUser(t, repo, "alice@example.com", "password1", true)

		_, err := sessions.Login(ctx, "alice@example.com", "bad-password")
		require.Error(t, err)

		_, err = sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		assert.Equal(t, []auth.ActivityEventType{
			auth.ActivityEventLoginFailure,
			auth.ActivityEventLoginSuccess,
		}, sink.types())
	})
}

func TestSessionManager_Refresh(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("rotates the refresh token", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		rotated, err := sessions.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
		assert.NotEmpty(t, rotated.AccessToken)
	})

	t.Run("a replayed token no longer authenticates", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		_, err = sessions.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		_, err = sessions.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredRefresh)
	})

	t.Run("rotation does not change the session count", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		user := seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		_, err = sessions.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		count, err := repo.RefreshTokens().CountByUserTx(ctx, repo.DB(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		sessions, _ := newSessionManager(t, cfg)

		_, err := sessions.Refresh(ctx, uuid.NewString())
		assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredRefresh)
	})

	t.Run("rejects and deletes an expired record", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		user := seedUser(t, repo, "alice@example.com", "password1", true)

		record, err := repo.RefreshTokens().CreateTx(ctx, repo.DB(), &auth.RefreshToken{
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)

		_, err = sessions.Refresh(ctx, record.Token)
		assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredRefresh)

		_, err = repo.RefreshTokens().GetByTokenTx(ctx, repo.DB(), record.Token)
		assert.True(t, auth.IsNoRows(err))
	})
}

func TestSessionManager_Logout(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("consumes the refresh token", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		require.NoError(t, sessions.Logout(ctx, pair.RefreshToken))

		_, err = sessions.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredRefresh)
	})

	t.Run("reports a token with no session", func(t *testing.T) {
		sessions, _ := newSessionManager(t, cfg)
		err := sessions.Logout(ctx, uuid.NewString())
		assert.ErrorIs(t, err, auth.ErrNoActiveSession)
	})

	t.Run("logout twice fails the second time", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		require.NoError(t, sessions.Logout(ctx, pair.RefreshToken))
		assert.ErrorIs(t, sessions.Logout(ctx, pair.RefreshToken), auth.ErrNoActiveSession)
	})
}

func TestSessionManager_LogoutAll(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	sessions, repo := newSessionManager(t, cfg)
	user := seedUser(t, repo, "alice@example.com", "password1", true)

	for i := 0; i < 3; i++ {
		_, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)
	}

	require.NoError(t, sessions.LogoutAll(ctx, user.ID))

	count, err := repo.RefreshTokens().CountByUserTx(ctx, repo.DB(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionManager_ResolveCurrentUser(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	t.Run("resolves a live access token", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		user := seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		resolved, err := sessions.ResolveCurrentUser(ctx, pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Equal(t, "alice@example.com", resolved.Email)
	})

	t.Run("rejects a refresh token used as access token", func(t *testing.T) {
		sessions, repo := newSessionManager(t, cfg)
		seedUser(t, repo, "alice@example.com", "password1", true)

		pair, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.NoError(t, err)

		// refresh tokens are opaque store handles, not JWTs
		_, err = sessions.ResolveCurrentUser(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("rejects token whose subject no longer exists", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := auth.NewTokenService(cfg)
		sessions := auth.NewSessionManager(repo, tokens, cfg)

		raw, _, err := tokens.Issue(uuid.NewString(), auth.PurposeAccess)
		require.NoError(t, err)

		_, err = sessions.ResolveCurrentUser(ctx, raw)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("re-checks the confirmation flag against the store", func(t *testing.T) {
		repo := newTestRepo(t)
		tokens := auth.NewTokenService(cfg)
		sessions := auth.NewSessionManager(repo, tokens, cfg)

		user := seedUser(t, repo, "pending@example.com", "password1", false)

		raw, _, err := tokens.Issue(user.ID.String(), auth.PurposeAccess)
		require.NoError(t, err)

		_, err = sessions.ResolveCurrentUser(ctx, raw)
		assert.ErrorIs(t, err, auth.ErrEmailNotConfirmed)
	})
}
