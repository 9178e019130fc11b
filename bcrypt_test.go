package auth_test

import (
	"testing"

	auth "github.com/amoryn/go-auth-core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes a password", func(t *testing.T) {
		hash, err := auth.HashPassword("s3cret-password")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "s3cret-password", hash)
	})

	t.Run("salts every hash", func(t *testing.T) {
		first, err := auth.HashPassword("s3cret-password")
		require.NoError(t, err)

		second, err := auth.HashPassword("s3cret-password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)

	t.Run("accepts matching password", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash("s3cret-password", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("wrong-password", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("reports corrupt stored digest", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("s3cret-password", "not-a-bcrypt-digest")
		assert.ErrorIs(t, err, auth.ErrCorruptCredential)
	})
}
