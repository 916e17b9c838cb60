// Package pipeline owns the lead status field and its per-status timestamps.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rooftrack-engine/internal/store"
)

// Pipeline stages in order, plus the absorbing lost state. paid,
// review_received and lost are terminal, though nothing here blocks a manual
// backward move; the store stays permissive on purpose.
const (
	StatusNew            = "new"
	StatusContacted      = "contacted"
	StatusQuoted         = "quoted"
	StatusAccepted       = "accepted"
	StatusScheduled      = "scheduled"
	StatusCompleted      = "completed"
	StatusPaid           = "paid"
	StatusReviewReceived = "review_received"
	StatusLost           = "lost"
)

// Statuses lists every reachable stage in pipeline order.
var Statuses = []string{
	StatusNew, StatusContacted, StatusQuoted, StatusAccepted,
	StatusScheduled, StatusCompleted, StatusPaid, StatusReviewReceived,
	StatusLost,
}

// timestampColumns maps each stage to its dedicated column. new has none:
// created_at already covers it. Re-entering a stage overwrites the column
// (last write wins); the audit trail keeps the history.
var timestampColumns = map[string]string{
	StatusContacted:      "contacted_at",
	StatusQuoted:         "quoted_at",
	StatusAccepted:       "accepted_at",
	StatusScheduled:      "scheduled_at",
	StatusCompleted:      "completed_at",
	StatusPaid:           "paid_at",
	StatusReviewReceived: "review_received_at",
	StatusLost:           "lost_at",
}

// Known reports whether status is one of the fixed stages.
func Known(status string) bool {
	_, ok := timestampColumns[status]
	return ok || status == StatusNew
}

// Transition moves the lead to status: writes the status, stamps the stage's
// timestamp column if it has one, refreshes updated_at and appends one audit
// entry. Unknown statuses are written through without a timestamp column and
// no transition, legal or not, is rejected.
func Transition(ctx context.Context, db *sql.DB, leadID, status string, now time.Time) error {
	col := timestampColumns[status] // "" for new and for unknown statuses

	if err := store.SetLeadStatus(ctx, db, leadID, status, col, now); err != nil {
		return err
	}

	summary := fmt.Sprintf("Status changed to %s", status)
	if _, err := store.LogInteraction(ctx, db, leadID, "system", summary, "system"); err != nil {
		return fmt.Errorf("transition audit: %w", err)
	}
	return nil
}

// AdvanceOnAppointment performs the one automatic move in the pipeline:
// booking an appointment for a still-new lead advances it to scheduled. Any
// other current status is left alone. Returns whether it advanced.
func AdvanceOnAppointment(ctx context.Context, db *sql.DB, leadID string, now time.Time) (bool, error) {
	lead, err := store.GetLead(ctx, db, leadID)
	if err != nil {
		return false, err
	}
	if lead.Status != StatusNew {
		return false, nil
	}
	if err := Transition(ctx, db, leadID, StatusScheduled, now); err != nil {
		return false, err
	}
	return true, nil
}
