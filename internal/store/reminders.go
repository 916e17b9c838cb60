package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Reminder struct {
	ID         string `json:"id"`
	ChatUserID string `json:"chatUserId"`
	LeadID     string `json:"leadId,omitempty"`
	RemindAt   string `json:"remindAt"` // YYYY-MM-DD HH:MM:SS
	Message    string `json:"message"`
	Sent       bool   `json:"sent"`
	CreatedAt  string `json:"createdAt"`

	LeadName string `json:"leadName,omitempty"`
}

func CreateReminder(ctx context.Context, db *sql.DB, r *Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var leadID any
	if r.LeadID != "" {
		leadID = r.LeadID
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO reminders (id, chat_user_id, lead_id, remind_at, message, sent)
VALUES (?,?,?,?,?,0);`,
		r.ID, r.ChatUserID, leadID, r.RemindAt, r.Message)
	if err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// DueReminders returns unsent reminders whose remind_at has passed, joined
// with the related lead's name when one is attached.
func DueReminders(ctx context.Context, db *sql.DB, now time.Time) ([]Reminder, error) {
	rows, err := db.QueryContext(ctx, `
SELECT r.id, r.chat_user_id, COALESCE(r.lead_id,''), r.remind_at, r.message, r.sent, r.created_at,
       COALESCE(l.name,'')
FROM reminders r
LEFT JOIN leads l ON r.lead_id = l.id
WHERE r.sent = 0
AND r.remind_at <= ?;`, SQLTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var sent int
		if err := rows.Scan(&r.ID, &r.ChatUserID, &r.LeadID, &r.RemindAt, &r.Message, &sent, &r.CreatedAt, &r.LeadName); err != nil {
			return nil, err
		}
		r.Sent = sent != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func MarkReminderSent(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE reminders SET sent = 1 WHERE id = ?;`, id)
	return err
}
