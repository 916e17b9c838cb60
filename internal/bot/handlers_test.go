package bot

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rooftrack-engine/internal/pipeline"
	"rooftrack-engine/internal/store"
)

func newHandler(t *testing.T) (*Handler, *sql.DB) {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	h := &Handler{
		DB:  db.Pool,
		Now: func() time.Time { return time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC) },
	}
	return h, db.Pool
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "214-555-1234", FormatPhone("2145551234"))
	assert.Equal(t, "214-555-1234", FormatPhone("(214) 555-1234"))
	assert.Equal(t, "+1 214 555 1234", FormatPhone("+1 214 555 1234"), "11 digits pass through")
	assert.Equal(t, "", FormatPhone(""))
}

func TestAddLeadIntent(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	reply, err := h.Handle(ctx, "42", AddLead{
		Name:  "John Smith",
		Phone: "(214) 555-1234",
		Issue: "storm damage, follow up in 3 days",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "Lead Created")
	assert.Contains(t, reply, "214-555-1234")
	assert.Contains(t, reply, "Irving, TX", "location defaults")
	assert.Contains(t, reply, "Follow-up booked for 2024-03-04")

	lead, err := store.FindLead(ctx, db, "John Smith")
	require.NoError(t, err)
	assert.Equal(t, "chat", lead.SourceChannel)
	assert.Equal(t, "warm", lead.Priority)

	appts, err := store.ListAppointmentsByLead(ctx, db, lead.ID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, store.ApptFollowUp, appts[0].Type)
}

func TestAddLeadRequiresName(t *testing.T) {
	h, _ := newHandler(t)
	reply, err := h.Handle(context.Background(), "42", AddLead{Phone: "2145551234"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Name is required")
}

func TestUpdateLeadIntent(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	l := store.Lead{Name: "Jane Doe"}
	require.NoError(t, store.CreateLead(ctx, db, &l))

	reply, err := h.Handle(ctx, "42", UpdateLead{
		LeadRef: "Jane",
		Status:  pipeline.StatusContacted,
		Email:   "jane@example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "Lead Updated")
	assert.Contains(t, reply, "2 field(s)")

	got, err := store.GetLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusContacted, got.Status)
	assert.NotEmpty(t, got.ContactedAt, "status change went through the pipeline")
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestUpdateLeadNotFound(t *testing.T) {
	h, _ := newHandler(t)
	reply, err := h.Handle(context.Background(), "42", UpdateLead{LeadRef: "nobody", Email: "x@y.z"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Could not find a lead")
}

func TestAddAppointmentAdvancesNewLeadOnly(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	l := store.Lead{Name: "Jane Doe", Address: "12 Oak St"}
	require.NoError(t, store.CreateLead(ctx, db, &l))

	reply, err := h.Handle(ctx, "42", AddAppointment{LeadRef: "Jane", Date: "2024-03-05", Time: "14:00"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Appointment Scheduled")
	assert.Contains(t, reply, "12 Oak St", "lead address carried onto the appointment")

	got, err := store.GetLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusScheduled, got.Status)
	firstStamp := got.ScheduledAt

	// Lead already scheduled: a second booking leaves the pipeline alone.
	_, err = h.Handle(ctx, "42", AddAppointment{LeadRef: "Jane", Date: "2024-03-09"})
	require.NoError(t, err)
	got, err = store.GetLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, got.ScheduledAt)
}

func TestStatusCheckIntent(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		l := store.Lead{Name: name}
		require.NoError(t, store.CreateLead(ctx, db, &l))
	}

	reply, err := h.Handle(ctx, "42", StatusCheck{})
	require.NoError(t, err)
	assert.Contains(t, reply, "Total Leads:* 2")
	assert.Contains(t, reply, "new: 2")
}

func TestAddNoteSchedulesFollowUps(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	l := store.Lead{Name: "Jane Doe"}
	require.NoError(t, store.CreateLead(ctx, db, &l))

	reply, err := h.Handle(ctx, "42", AddNote{LeadRef: "Jane", Note: "spoke with insurance, check back next Monday"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Note Added")
	// 2024-03-01 is a Friday; next Monday is the 4th.
	assert.Contains(t, reply, "Follow-up booked for 2024-03-04")

	entries, err := store.ListInteractionsByLead(ctx, db, l.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the note plus the auto-schedule audit entry")
}

func TestSetReminderIntent(t *testing.T) {
	h, db := newHandler(t)
	ctx := context.Background()

	reply, err := h.Handle(ctx, "42", SetReminder{Date: "2024-03-10", Text: "call John"})
	require.NoError(t, err)
	assert.Contains(t, reply, "Reminder Set")
	assert.Contains(t, reply, "at 09:00", "time defaults")

	due, err := store.DueReminders(ctx, db, time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "42", due[0].ChatUserID)
}

func TestCheckRemindersAtLeastOnce(t *testing.T) {
	_, db := newHandler(t)
	ctx := context.Background()

	l := store.Lead{Name: "John Smith"}
	require.NoError(t, store.CreateLead(ctx, db, &l))
	r := store.Reminder{ChatUserID: "42", LeadID: l.ID, RemindAt: "2024-03-10 08:00:00", Message: "call John"}
	require.NoError(t, store.CreateReminder(ctx, db, &r))
	r2 := store.Reminder{ChatUserID: "43", RemindAt: "2024-03-10 08:00:00", Message: "order shingles"}
	require.NoError(t, store.CreateReminder(ctx, db, &r2))

	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

	// First pass: one recipient is down; its reminder stays unsent.
	var sent []string
	flaky := SenderFunc(func(ctx context.Context, chatUserID, text string) error {
		if chatUserID == "43" {
			return errors.New("recipient unreachable")
		}
		sent = append(sent, chatUserID+": "+text)
		return nil
	})
	n, err := CheckReminders(ctx, db, flaky, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Related Lead:* John Smith")

	// Second pass redelivers only the failed one.
	ok := SenderFunc(func(ctx context.Context, chatUserID, text string) error {
		sent = append(sent, chatUserID+": "+text)
		return nil
	})
	n, err = CheckReminders(ctx, db, ok, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], "order shingles")
}

func TestRateLimitedSender(t *testing.T) {
	var calls int
	inner := SenderFunc(func(ctx context.Context, chatUserID, text string) error {
		calls++
		return nil
	})
	s := NewRateLimitedSender(inner, 1000, 10)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Send(context.Background(), "42", "hi"))
	}
	assert.Equal(t, 5, calls)
}
