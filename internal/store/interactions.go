package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Interaction struct {
	ID        string `json:"id"`
	LeadID    string `json:"leadId"`
	Type      string `json:"type"` // call | email | note | system | meeting | sms | inspection
	Direction string `json:"direction"`
	Summary   string `json:"summary"`
	LoggedBy  string `json:"loggedBy"`
	CreatedAt string `json:"createdAt"`
}

// LogInteraction appends one audit-trail entry. The interactions table is the
// system of record for everything done to a lead; rows are never touched again.
func LogInteraction(ctx context.Context, db *sql.DB, leadID, typ, summary, loggedBy string) (string, error) {
	id := uuid.NewString()
	if typ == "" {
		typ = "note"
	}
	if loggedBy == "" {
		loggedBy = "system"
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO interactions (id, lead_id, type, direction, summary, logged_by)
VALUES (?,?,?,'internal',?,?);`,
		id, leadID, typ, summary, loggedBy)
	if err != nil {
		return "", fmt.Errorf("log interaction: %w", err)
	}
	return id, nil
}

// LogInteractionDirected is LogInteraction with an explicit direction
// (inbound/outbound), used by the REST surface.
func LogInteractionDirected(ctx context.Context, db *sql.DB, i *Interaction) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Type == "" {
		i.Type = "note"
	}
	if i.Direction == "" {
		i.Direction = "internal"
	}
	if i.LoggedBy == "" {
		i.LoggedBy = "system"
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO interactions (id, lead_id, type, direction, summary, logged_by)
VALUES (?,?,?,?,?,?);`,
		i.ID, i.LeadID, i.Type, i.Direction, i.Summary, i.LoggedBy)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

func ListInteractionsByLead(ctx context.Context, db *sql.DB, leadID string) ([]Interaction, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, lead_id, type, direction, summary, logged_by, created_at
FROM interactions
WHERE lead_id = ?
ORDER BY created_at DESC;`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.ID, &i.LeadID, &i.Type, &i.Direction, &i.Summary, &i.LoggedBy, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
