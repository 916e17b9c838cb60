package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	admin, ok, err := h.Authorize(ctx, "100", "boss", "The Boss", "100")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", admin.Role)

	crew, ok, err := h.Authorize(ctx, "200", "crew", "Crew Member", "100")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "contractor", crew.Role)

	// Second contact returns the same account, still unapproved.
	again, ok, err := h.Authorize(ctx, "200", "crew", "Crew Member", "100")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, crew.ID, again.ID)

	assert.Contains(t, WelcomeReply(admin), "Welcome back")
	assert.Contains(t, WelcomeReply(crew), "pending approval")
}

func TestApproveUser(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	_, _, err := h.Authorize(ctx, "100", "boss", "The Boss", "100")
	require.NoError(t, err)
	_, _, err = h.Authorize(ctx, "200", "crew", "Crew Member", "100")
	require.NoError(t, err)

	reply, err := h.ApproveUser(ctx, "200", "200")
	require.NoError(t, err)
	assert.Contains(t, reply, "Only the admin")

	reply, err = h.ApproveUser(ctx, "100", "200")
	require.NoError(t, err)
	assert.Contains(t, reply, "Approved")

	_, ok, err := h.Authorize(ctx, "200", "crew", "Crew Member", "100")
	require.NoError(t, err)
	assert.True(t, ok)

	reply, err = h.ApproveUser(ctx, "100", "999")
	require.NoError(t, err)
	assert.Contains(t, reply, "No account found")
}
