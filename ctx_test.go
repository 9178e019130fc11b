package auth_test

import (
	"context"
	"testing"

	auth "github.com/amoryn/go-auth-core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContext(t *testing.T) {
	t.Run("round trips a user", func(t *testing.T) {
		user := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

		ctx := auth.WithContext(context.Background(), user)

		found, ok := auth.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, user, found)
	})

	t.Run("missing user reports false", func(t *testing.T) {
		found, ok := auth.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, found)
	})
}
