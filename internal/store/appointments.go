package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Appointment types mirror what the field crew actually books.
const (
	ApptInspection   = "inspection"
	ApptEstimate     = "estimate"
	ApptFollowUp     = "follow_up"
	ApptInstallation = "installation"
)

type Appointment struct {
	ID            string `json:"id"`
	LeadID        string `json:"leadId"`
	Type          string `json:"type"`
	ScheduledDate string `json:"scheduledDate"` // YYYY-MM-DD
	ScheduledTime string `json:"scheduledTime"` // HH:MM, optional
	Address       string `json:"address"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`

	// Populated by joined listings only.
	LeadName  string `json:"leadName,omitempty"`
	LeadPhone string `json:"leadPhone,omitempty"`
}

func CreateAppointment(ctx context.Context, db *sql.DB, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = ApptInspection
	}
	if a.Status == "" {
		a.Status = "scheduled"
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO appointments (id, lead_id, type, scheduled_date, scheduled_time, address, notes, status)
VALUES (?,?,?,?,?,?,?,?);`,
		a.ID, a.LeadID, a.Type, a.ScheduledDate, a.ScheduledTime, a.Address, a.Notes, a.Status)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// HasFollowUpOn reports whether a follow_up appointment already exists for the
// lead on the given calendar date. This is the dedupe key the note parser
// relies on to stay idempotent.
func HasFollowUpOn(ctx context.Context, db *sql.DB, leadID, date string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `
SELECT 1 FROM appointments
WHERE lead_id = ? AND type = ? AND scheduled_date = ?
LIMIT 1;`, leadID, ApptFollowUp, date).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAppointments returns all appointments joined with their lead's name and
// phone, newest scheduled date first.
func ListAppointments(ctx context.Context, db *sql.DB) ([]Appointment, error) {
	rows, err := db.QueryContext(ctx, `
SELECT a.id, a.lead_id, a.type, a.scheduled_date, COALESCE(a.scheduled_time,''),
       COALESCE(a.address,''), COALESCE(a.notes,''), a.status,
       a.created_at, a.updated_at,
       l.name, COALESCE(l.phone,'')
FROM appointments a
JOIN leads l ON a.lead_id = l.id
ORDER BY a.scheduled_date DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.LeadID, &a.Type, &a.ScheduledDate, &a.ScheduledTime,
			&a.Address, &a.Notes, &a.Status,
			&a.CreatedAt, &a.UpdatedAt,
			&a.LeadName, &a.LeadPhone,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func ListAppointmentsByLead(ctx context.Context, db *sql.DB, leadID string) ([]Appointment, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, lead_id, type, scheduled_date, COALESCE(scheduled_time,''),
       COALESCE(address,''), COALESCE(notes,''), status, created_at, updated_at
FROM appointments
WHERE lead_id = ?
ORDER BY scheduled_date DESC;`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.LeadID, &a.Type, &a.ScheduledDate, &a.ScheduledTime,
			&a.Address, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
