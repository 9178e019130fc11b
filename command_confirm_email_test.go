package auth_test

import (
	"context"
	"testing"

	auth "github.com/amoryn/go-auth-core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmEmailHandler(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	registerPending := func(t *testing.T, repo auth.RepositoryManager) (string, *auth.User) {
		t.Helper()
		mailer := &captureMailer{}
		handler := auth.NewRegisterUserHandler(repo, mailer, cfg)

		var created *auth.User
		require.NoError(t, handler.Execute(ctx, auth.RegisterUserMessage{
			Email:    "alice@example.com",
			Password: "password1",
			OnResponse: func(user *auth.User) {
				created = user
			},
		}))

		return tokenFromLink(t, mailer.Sends[0].Link), created
	}

	t.Run("confirms the account and clears the token", func(t *testing.T) {
		repo := newTestRepo(t)
		token, user := registerPending(t, repo)

		handler := auth.NewConfirmEmailHandler(repo)
		require.NoError(t, handler.Execute(ctx, auth.ConfirmEmailMessage{Token: token}))

		stored, err := repo.Users().GetByID(ctx, user.ID.String())
		require.NoError(t, err)
		assert.True(t, stored.IsConfirmed)
		assert.Nil(t, stored.ConfirmationToken)
	})

	t.Run("confirmation unlocks login", func(t *testing.T) {
		repo := newTestRepo(t)
		token, _ := registerPending(t, repo)

		sessions := auth.NewSessionManager(repo, auth.NewTokenService(cfg), cfg)

		_, err := sessions.Login(ctx, "alice@example.com", "password1")
		require.ErrorIs(t, err, auth.ErrEmailNotConfirmed)

		require.NoError(t, auth.NewConfirmEmailHandler(repo).Execute(ctx, auth.ConfirmEmailMessage{Token: token}))

		_, err = sessions.Login(ctx, "alice@example.com", "password1")
		assert.NoError(t, err)
	})

	t.Run("link cannot be replayed", func(t *testing.T) {
		repo := newTestRepo(t)
		token, _ := registerPending(t, repo)

		handler := auth.NewConfirmEmailHandler(repo)
		require.NoError(t, handler.Execute(ctx, auth.ConfirmEmailMessage{Token: token}))

		err := handler.Execute(ctx, auth.ConfirmEmailMessage{Token: token})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		repo := newTestRepo(t)
		handler := auth.NewConfirmEmailHandler(repo)

		err := handler.Execute(ctx, auth.ConfirmEmailMessage{Token: "no-such-token"})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		repo := newTestRepo(t)
		handler := auth.NewConfirmEmailHandler(repo)

		err := handler.Execute(ctx, auth.ConfirmEmailMessage{})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
