package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type Lead struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Zip            string  `json:"zip"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	SourceChannel  string  `json:"sourceChannel"`
	Notes          string  `json:"notes"`
	EstimatedValue float64 `json:"estimatedValue"`

	ContactedAt      string `json:"contactedAt,omitempty"`
	QuotedAt         string `json:"quotedAt,omitempty"`
	AcceptedAt       string `json:"acceptedAt,omitempty"`
	ScheduledAt      string `json:"scheduledAt,omitempty"`
	CompletedAt      string `json:"completedAt,omitempty"`
	PaidAt           string `json:"paidAt,omitempty"`
	ReviewReceivedAt string `json:"reviewReceivedAt,omitempty"`
	LostAt           string `json:"lostAt,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

const leadColumns = `id, name,
COALESCE(phone,''), COALESCE(email,''), COALESCE(address,''),
COALESCE(city,''), COALESCE(state,''), COALESCE(zip,''),
status, priority, source_channel, COALESCE(notes,''), COALESCE(estimated_value,0),
COALESCE(contacted_at,''), COALESCE(quoted_at,''), COALESCE(accepted_at,''),
COALESCE(scheduled_at,''), COALESCE(completed_at,''), COALESCE(paid_at,''),
COALESCE(review_received_at,''), COALESCE(lost_at,''),
created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name,
		&l.Phone, &l.Email, &l.Address,
		&l.City, &l.State, &l.Zip,
		&l.Status, &l.Priority, &l.SourceChannel, &l.Notes, &l.EstimatedValue,
		&l.ContactedAt, &l.QuotedAt, &l.AcceptedAt,
		&l.ScheduledAt, &l.CompletedAt, &l.PaidAt,
		&l.ReviewReceivedAt, &l.LostAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// CreateLead inserts l, filling in ID and defaults where empty.
func CreateLead(ctx context.Context, db *sql.DB, l *Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = "new"
	}
	if l.Priority == "" {
		l.Priority = "warm"
	}
	if l.SourceChannel == "" {
		l.SourceChannel = "manual"
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO leads (id, name, phone, email, address, city, state, zip,
                   status, priority, source_channel, notes, estimated_value)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		l.ID, l.Name, l.Phone, l.Email, l.Address, l.City, l.State, l.Zip,
		l.Status, l.Priority, l.SourceChannel, l.Notes, l.EstimatedValue)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func GetLead(ctx context.Context, db *sql.DB, id string) (Lead, error) {
	row := db.QueryRowContext(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE id = ? AND deleted_at IS NULL;`, id)

	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func ListLeads(ctx context.Context, db *sql.DB, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.QueryContext(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE deleted_at IS NULL
ORDER BY created_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FindLead resolves a free-form name-or-phone reference to the most recently
// created matching lead.
func FindLead(ctx context.Context, db *sql.DB, nameOrPhone string) (Lead, error) {
	if strings.TrimSpace(nameOrPhone) == "" {
		return Lead{}, ErrNotFound
	}
	like := "%" + strings.ToLower(nameOrPhone) + "%"
	row := db.QueryRowContext(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE deleted_at IS NULL
AND (LOWER(name) LIKE ? OR phone LIKE ?)
ORDER BY created_at DESC
LIMIT 1;`, like, "%"+nameOrPhone+"%")

	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

// SearchLeads matches name, phone or address.
func SearchLeads(ctx context.Context, db *sql.DB, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + strings.ToLower(query) + "%"
	rows, err := db.QueryContext(ctx, `
SELECT `+leadColumns+`
FROM leads
WHERE deleted_at IS NULL
AND (LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(address) LIKE ?)
ORDER BY created_at DESC
LIMIT ?;`, like, "%"+query+"%", like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LeadPatch carries optional field updates; nil means leave unchanged.
type LeadPatch struct {
	Name           *string
	Phone          *string
	Email          *string
	Address        *string
	City           *string
	State          *string
	Zip            *string
	Priority       *string
	Notes          *string
	EstimatedValue *float64
}

// UpdateLead applies p to the lead row and returns how many fields changed.
// Status is deliberately absent from LeadPatch; status moves go through the
// pipeline package so timestamp columns and the audit trail stay consistent.
func UpdateLead(ctx context.Context, db *sql.DB, id string, p LeadPatch) (int, error) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.City != nil {
		add("city", *p.City)
	}
	if p.State != nil {
		add("state", *p.State)
	}
	if p.Zip != nil {
		add("zip", *p.Zip)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.EstimatedValue != nil {
		add("estimated_value", *p.EstimatedValue)
	}

	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, SQLTime(time.Now()), id)
	query := fmt.Sprintf(`UPDATE leads SET %s, updated_at = ? WHERE id = ? AND deleted_at IS NULL;`,
		strings.Join(sets, ", "))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}
	return len(sets), nil
}

func SoftDeleteLead(ctx context.Context, db *sql.DB, id string, now time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE leads SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL;`,
		SQLTime(now), SQLTime(now), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLeadStatus writes the new status, stamps tsColumn (may be empty for
// statuses without a dedicated column) and refreshes updated_at. tsColumn must
// come from a fixed whitelist; it is interpolated into the statement.
func SetLeadStatus(ctx context.Context, db *sql.DB, id, status, tsColumn string, now time.Time) error {
	var query string
	args := []any{status, SQLTime(now)}
	if tsColumn != "" {
		query = fmt.Sprintf(`UPDATE leads SET status = ?, %s = ?, updated_at = ? WHERE id = ?;`, tsColumn)
		args = append(args, SQLTime(now))
	} else {
		query = `UPDATE leads SET status = ?, updated_at = ? WHERE id = ?;`
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set lead status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
