package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rooftrack-engine/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db.Pool
}

func TestLoginLogout(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := SeedAdmin(ctx, db, "admin", "hunter2")
	require.NoError(t, err)
	assert.True(t, created)

	// Seeding is a first-run-only thing.
	created, err = SeedAdmin(ctx, db, "admin", "hunter2")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = Login(ctx, db, "admin", "wrong", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = Login(ctx, db, "ghost", "hunter2", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, token, err := Login(ctx, db, "admin", "hunter2", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "admin", u.Role)

	got, err := UserFromToken(ctx, db, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, Logout(ctx, db, token))
	_, err = UserFromToken(ctx, db, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := SeedAdmin(ctx, db, "admin", "hunter2")
	require.NoError(t, err)

	_, token, err := Login(ctx, db, "admin", "hunter2", -time.Minute)
	require.NoError(t, err)

	_, err = UserFromToken(ctx, db, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
