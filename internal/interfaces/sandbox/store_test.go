package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/infrastructure/session"
)

func TestSeedProducts_Deterministic(t *testing.T) {
	names := func() []string {
		db, err := OpenDB(InMemoryDSN, zap.NewNop(), "silent")
		require.NoError(t, err)
		n, err := SeedProducts(db, 10, 7)
		require.NoError(t, err)
		require.Equal(t, 10, n)

		again, err := SeedProducts(db, 10, 7)
		require.NoError(t, err)
		assert.Zero(t, again, "an existing catalog is left alone")

		var rows []ProductModel
		require.NoError(t, db.Order("id").Find(&rows).Error)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			assert.NotEmpty(t, r.Sizes)
			assert.Greater(t, r.Price, 0.0)
			out = append(out, r.Name)
		}
		return out
	}
	assert.Equal(t, names(), names())
}

func TestEnsureUser(t *testing.T) {
	db, err := OpenDB(InMemoryDSN, zap.NewNop(), "silent")
	require.NoError(t, err)

	u, err := EnsureUser(db, "root@example.com", "Secret123", "admin")
	require.NoError(t, err)
	assert.True(t, u.admin())
	assert.True(t, checkPassword(u.PasswordHash, "Secret123"))
	assert.False(t, checkPassword(u.PasswordHash, "secret123"))

	same, err := EnsureUser(db, "root@example.com", "Other1234", "user")
	require.NoError(t, err)
	assert.Equal(t, u.ID, same.ID)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	token, err := issuer.Issue(&UserModel{ID: 7, Role: "admin", Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID())
	assert.Equal(t, "admin", claims.Role)

	// The client reads the same claims without the secret.
	decoded, err := session.DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "7", decoded.Subject)
	assert.Equal(t, "admin", decoded.Role)
	require.NotNil(t, decoded.ExpiresAt)

	_, err = NewTokenIssuer("other", time.Hour).Verify(token)
	assert.Error(t, err)

	expired := NewTokenIssuer("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Verify(token)
	assert.Error(t, err)
}
