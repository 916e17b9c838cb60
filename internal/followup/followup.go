// Package followup turns extracted note dates into follow_up appointments.
package followup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rooftrack-engine/internal/notes"
	"rooftrack-engine/internal/store"
)

// Schedule parses noteText and books one follow_up appointment per extracted
// date that the lead doesn't already have one on. It runs on lead creation
// and on every notes edit with identical semantics, so re-applying the same
// note text is a no-op.
//
// Returns the appointments it actually created (nil when everything was a
// duplicate or nothing matched). Each candidate is an independent unit of
// work: a failed insert surfaces the error but leaves earlier creations in
// place.
func Schedule(ctx context.Context, db *sql.DB, leadID, noteText string, now time.Time) ([]store.Appointment, error) {
	candidates := notes.Extract(noteText, now)
	if len(candidates) == 0 {
		return nil, nil
	}

	var created []store.Appointment
	for _, c := range candidates {
		date := c.DateString()

		exists, err := store.HasFollowUpOn(ctx, db, leadID, date)
		if err != nil {
			return created, fmt.Errorf("followup dedupe check: %w", err)
		}
		if exists {
			continue
		}

		appt := store.Appointment{
			LeadID:        leadID,
			Type:          store.ApptFollowUp,
			ScheduledDate: date,
			ScheduledTime: c.Time,
			Notes:         fmt.Sprintf("Auto-scheduled from note: %q", c.Phrase),
		}
		if err := store.CreateAppointment(ctx, db, &appt); err != nil {
			return created, err
		}

		summary := fmt.Sprintf("Follow-up auto-scheduled for %s (matched %q)", date, c.Phrase)
		if _, err := store.LogInteraction(ctx, db, leadID, "system", summary, "note_parser"); err != nil {
			return created, err
		}

		created = append(created, appt)
	}

	return created, nil
}
