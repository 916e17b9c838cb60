package pipeline

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

func newLead(t *testing.T, db *sql.DB) string {
	t.Helper()
	l := store.Lead{Name: "Jane Doe"}
	require.NoError(t, store.CreateLead(context.Background(), db, &l))
	return l.ID
}

func TestTransitionStampsColumn(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Transition(ctx, db, leadID, StatusContacted, now))

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, StatusContacted, lead.Status)
	assert.Equal(t, "2024-03-01 12:00:00", lead.ContactedAt)
	assert.Empty(t, lead.QuotedAt)
	assert.Empty(t, lead.LostAt)

	entries, err := store.ListInteractionsByLead(ctx, db, leadID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Status changed to contacted", entries[0].Summary)
}

func TestTransitionLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()

	first := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

	require.NoError(t, Transition(ctx, db, leadID, StatusQuoted, first))
	require.NoError(t, Transition(ctx, db, leadID, StatusAccepted, second))
	// Re-entering quoted overwrites the earlier stamp.
	third := time.Date(2024, time.March, 9, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Transition(ctx, db, leadID, StatusQuoted, third))

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09 09:00:00", lead.QuotedAt)
	assert.Equal(t, "2024-03-05 09:00:00", lead.AcceptedAt)
}

func TestTransitionToLostTouchesOnlyLostAt(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()

	require.NoError(t, Transition(ctx, db, leadID, StatusQuoted, time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, Transition(ctx, db, leadID, StatusLost, time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC)))

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, StatusLost, lead.Status)
	assert.Equal(t, "2024-03-02 09:00:00", lead.LostAt)
	assert.Equal(t, "2024-03-01 09:00:00", lead.QuotedAt, "earlier stamps untouched")
	assert.Empty(t, lead.ContactedAt)
}

func TestTransitionPermissive(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Now()

	// Nothing blocks a backward move. A deliberate simplification.
	require.NoError(t, Transition(ctx, db, leadID, StatusPaid, now))
	require.NoError(t, Transition(ctx, db, leadID, StatusNew, now))

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, lead.Status)
	assert.NotEmpty(t, lead.PaidAt)
}

func TestTransitionUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()

	// Unknown statuses pass through with no timestamp column.
	require.NoError(t, Transition(ctx, db, leadID, "on_hold", time.Now()))

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, "on_hold", lead.Status)
}

func TestAdvanceOnAppointment(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	advanced, err := AdvanceOnAppointment(ctx, db, leadID, now)
	require.NoError(t, err)
	assert.True(t, advanced)

	lead, err := store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, lead.Status)
	assert.Equal(t, "2024-03-01 10:00:00", lead.ScheduledAt)

	// A second appointment later does not re-trigger; the lead is no longer new.
	later := now.Add(48 * time.Hour)
	advanced, err = AdvanceOnAppointment(ctx, db, leadID, later)
	require.NoError(t, err)
	assert.False(t, advanced)

	lead, err = store.GetLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 10:00:00", lead.ScheduledAt, "stamp unchanged")
}

func TestKnown(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, Known(s), s)
	}
	assert.False(t, Known("inspected"))
}
