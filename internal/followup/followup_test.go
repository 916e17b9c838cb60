package followup

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
	l := store.Lead{Name: "John Smith", Phone: "214-555-1234"}
	require.NoError(t, store.CreateLead(context.Background(), db, &l))
	return l.ID
}

func TestScheduleFromNote(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	created, err := Schedule(ctx, db, leadID, "Roof leak. Follow up in 3 days.", now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	appt := created[0]
	assert.Equal(t, store.ApptFollowUp, appt.Type)
	assert.Equal(t, "2024-03-04", appt.ScheduledDate)
	assert.Equal(t, "10:00", appt.ScheduledTime)
	assert.Contains(t, appt.Notes, "in 3 days")

	// Exactly one audit entry describing the auto-scheduling.
	entries, err := store.ListInteractionsByLead(ctx, db, leadID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].Type)
	assert.Contains(t, entries[0].Summary, "2024-03-04")
}

func TestScheduleIdempotent(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	note := "Tarp tomorrow, then follow up in 3 days."

	first, err := Schedule(ctx, db, leadID, note, now)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Same note re-applied (e.g. notes edited and saved back) books nothing.
	second, err := Schedule(ctx, db, leadID, note, now)
	require.NoError(t, err)
	assert.Empty(t, second)

	appts, err := store.ListAppointmentsByLead(ctx, db, leadID)
	require.NoError(t, err)
	assert.Len(t, appts, 2)
}

func TestScheduleDedupePerDate(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	_, err := Schedule(ctx, db, leadID, "follow up in 3 days", now)
	require.NoError(t, err)

	// A different phrase landing on the same calendar date is a duplicate;
	// one landing on a new date is not.
	created, err := Schedule(ctx, db, leadID, "call again after 3 days, quote on March 20th", now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2024-03-20", created[0].ScheduledDate)
}

func TestScheduleNoMatches(t *testing.T) {
	db := newTestDB(t)
	leadID := newLead(t, db)

	created, err := Schedule(context.Background(), db, leadID, "customer undecided, will call us", time.Now())
	require.NoError(t, err)
	assert.Empty(t, created)
}
