package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db.Pool
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	// Second run is a no-op keyed on user_version.
	require.NoError(t, Migrate(db))

	var v int
	require.NoError(t, db.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestLeadLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := Lead{Name: "John Smith", Phone: "214-555-1234", City: "Irving", State: "TX"}
	require.NoError(t, CreateLead(ctx, db, &l))
	require.NotEmpty(t, l.ID)
	assert.Equal(t, "new", l.Status)
	assert.Equal(t, "warm", l.Priority)
	assert.Equal(t, "manual", l.SourceChannel)

	got, err := GetLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", got.Name)
	assert.Empty(t, got.ContactedAt)

	notes := "storm damage, north slope"
	hot := "hot"
	n, err := UpdateLead(ctx, db, l.ID, LeadPatch{Notes: &notes, Priority: &hot})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = GetLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, "hot", got.Priority)

	// Empty patch is a no-op, not an error.
	n, err = UpdateLead(ctx, db, l.ID, LeadPatch{})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, SoftDeleteLead(ctx, db, l.ID, time.Now()))
	_, err = GetLead(ctx, db, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindLead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := Lead{Name: "John Smith", Phone: "214-555-1234"}
	require.NoError(t, CreateLead(ctx, db, &a))
	b := Lead{Name: "Johnny Walker", Phone: "972-555-9999"}
	require.NoError(t, CreateLead(ctx, db, &b))

	got, err := FindLead(ctx, db, "walker")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = FindLead(ctx, db, "214-555")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = FindLead(ctx, db, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FindLead(ctx, db, "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasFollowUpOn(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := Lead{Name: "Jane Doe"}
	require.NoError(t, CreateLead(ctx, db, &l))

	ok, err := HasFollowUpOn(ctx, db, l.ID, "2024-03-04")
	require.NoError(t, err)
	assert.False(t, ok)

	appt := Appointment{LeadID: l.ID, Type: ApptFollowUp, ScheduledDate: "2024-03-04"}
	require.NoError(t, CreateAppointment(ctx, db, &appt))

	ok, err = HasFollowUpOn(ctx, db, l.ID, "2024-03-04")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same date, different type does not count against the dedupe key.
	insp := Appointment{LeadID: l.ID, Type: ApptInspection, ScheduledDate: "2024-03-05"}
	require.NoError(t, CreateAppointment(ctx, db, &insp))
	ok, err = HasFollowUpOn(ctx, db, l.ID, "2024-03-05")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDashboardSummary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := Lead{Name: "John Smith", SourceChannel: "referral"}
	require.NoError(t, CreateLead(ctx, db, &l))
	l2 := Lead{Name: "Jane Doe", SourceChannel: "storm_chase"}
	require.NoError(t, CreateLead(ctx, db, &l2))

	today := time.Now().UTC().Format("2006-01-02")
	appt := Appointment{LeadID: l.ID, ScheduledDate: today}
	require.NoError(t, CreateAppointment(ctx, db, &appt))

	pending := Job{LeadID: l.ID, JobType: "replacement", QuoteAmount: 12000}
	require.NoError(t, CreateJob(ctx, db, &pending))
	paid := Job{LeadID: l2.ID, JobType: "repair", Status: "completed", FinalAmount: 4200, PaymentStatus: "paid"}
	require.NoError(t, CreateJob(ctx, db, &paid))

	_, err := LogInteraction(ctx, db, l.ID, "call", "Spoke with homeowner", "steve")
	require.NoError(t, err)

	s, err := DashboardSummary(ctx, db)
	require.NoError(t, err)

	assert.Equal(t, 2, s.NewLeadsThisWeek)
	assert.Equal(t, 1, s.AppointmentsToday)
	assert.Equal(t, 1, s.ActiveJobs, "completed job is not active")
	assert.Equal(t, 4200.0, s.RevenueThisMonth)
	assert.Equal(t, 0.0, s.RevenueLastMonth)
	assert.Equal(t, map[string]int{"new": 2}, s.LeadsByStatus)
	assert.Equal(t, map[string]int{"referral": 1, "storm_chase": 1}, s.LeadsBySource)
	require.Len(t, s.RevenueByMonth, 1)
	assert.Equal(t, 4200.0, s.RevenueByMonth[0].Revenue)
	require.Len(t, s.RecentActivity, 1)
	assert.Equal(t, "John Smith", s.RecentActivity[0].LeadName)
}

func TestDueReminders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	l := Lead{Name: "John Smith"}
	require.NoError(t, CreateLead(ctx, db, &l))

	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

	past := Reminder{ChatUserID: "42", LeadID: l.ID, RemindAt: "2024-03-10 08:00:00", Message: "call John"}
	require.NoError(t, CreateReminder(ctx, db, &past))
	future := Reminder{ChatUserID: "42", RemindAt: "2024-03-11 08:00:00", Message: "order shingles"}
	require.NoError(t, CreateReminder(ctx, db, &future))

	due, err := DueReminders(ctx, db, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "call John", due[0].Message)
	assert.Equal(t, "John Smith", due[0].LeadName)

	require.NoError(t, MarkReminderSent(ctx, db, due[0].ID))
	due, err = DueReminders(ctx, db, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestMarkIntakeMessage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	fresh, err := MarkIntakeMessage(ctx, db, "<abc@mail.yelp.com>")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = MarkIntakeMessage(ctx, db, "<abc@mail.yelp.com>")
	require.NoError(t, err)
	assert.False(t, fresh, "already processed")
}
