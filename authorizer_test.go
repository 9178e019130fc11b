package auth_test

import (
	"context"
	"testing"

	auth "github.com/amoryn/go-auth-core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizer_Scopes(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a scope", func(t *testing.T) {
		repo := newTestRepo(t)
		authorizer := auth.NewAuthorizer(repo)

		scope, err := authorizer.CreateScope(ctx, "moderator", "can hide profiles")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, scope.ID)
		assert.Equal(t, "moderator", scope.Name)
	})

	t.Run("rejects duplicate scope name", func(t *testing.T) {
		repo := newTestRepo(t)
		authorizer := auth.NewAuthorizer(repo)

		_, err := authorizer.CreateScope(ctx, "moderator", "")
		require.NoError(t, err)

		_, err = authorizer.CreateScope(ctx, "moderator", "again")
		assert.ErrorIs(t, err, auth.ErrScopeExists)
	})

	t.Run("empty set for user with no grants", func(t *testing.T) {
		repo := newTestRepo(t)
		authorizer := auth.NewAuthorizer(repo)

		names, err := authorizer.ScopesOf(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, names)
		assert.NotNil(t, names)
	})
}

func TestAuthorizer_GrantAndRevoke(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*auth.Authorizer, auth.RepositoryManager, *auth.User) {
		t.Helper()
		repo := newTestRepo(t)
		authorizer := auth.NewAuthorizer(repo)
		user := seedUser(t, repo, "alice@example.com", "password1", true)

		_, err := authorizer.CreateScope(ctx, "moderator", "")
		require.NoError(t, err)

		return authorizer, repo, user
	}

	t.Run("grant makes the scope resolvable", func(t *testing.T) {
		authorizer, _, user := setup(t)

		require.NoError(t, authorizer.GrantScope(ctx, user.ID, "moderator"))

		names, err := authorizer.ScopesOf(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"moderator"}, names)
	})

	t.Run("granting a held scope is a no-op", func(t *testing.T) {
		authorizer, _, user := setup(t)

		require.NoError(t, authorizer.GrantScope(ctx, user.ID, "moderator"))
		require.NoError(t, authorizer.GrantScope(ctx, user.ID, "moderator"))

		names, err := authorizer.ScopesOf(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, names, 1)
	})

	t.Run("granting an unknown scope fails", func(t *testing.T) {
		authorizer, _, user := setup(t)
		err := authorizer.GrantScope(ctx, user.ID, "no-such-scope")
		assert.ErrorIs(t, err, auth.ErrScopeNotFound)
	})

	t.Run("revoke removes the grant", func(t *testing.T) {
		authorizer, _, user := setup(t)

		require.NoError(t, authorizer.GrantScope(ctx, user.ID, "moderator"))
		require.NoError(t, authorizer.RevokeScope(ctx, user.ID, "moderator"))

		names, err := authorizer.ScopesOf(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("revoking a scope the user does not hold is a no-op", func(t *testing.T) {
		authorizer, _, user := setup(t)
		assert.NoError(t, authorizer.RevokeScope(ctx, user.ID, "moderator"))
	})
}

func TestAuthorizer_RequireScope(t *testing.T) {
	ctx := context.Background()

	repo := newTestRepo(t)
	authorizer := auth.NewAuthorizer(repo)
	user := seedUser(t, repo, "alice@example.com", "password1", true)

	_, err := authorizer.CreateScope(ctx, "moderator", "")
	require.NoError(t, err)
	_, err = authorizer.CreateScope(ctx, "moderator:super", "")
	require.NoError(t, err)

	t.Run("forbidden without the scope", func(t *testing.T) {
		err := authorizer.RequireScope(ctx, user.ID, "moderator")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("passes once granted", func(t *testing.T) {
		require.NoError(t, authorizer.GrantScope(ctx, user.ID, "moderator"))
		assert.NoError(t, authorizer.RequireScope(ctx, user.ID, "moderator"))
	})

	t.Run("matches by exact name only", func(t *testing.T) {
		// "moderator" does not imply "moderator:super"
		err := authorizer.RequireScope(ctx, user.ID, "moderator:super")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})
}
