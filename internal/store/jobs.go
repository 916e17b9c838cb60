package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Job struct {
	ID            string  `json:"id"`
	LeadID        string  `json:"leadId"`
	JobType       string  `json:"jobType"`
	Description   string  `json:"description"`
	Status        string  `json:"status"` // pending | in_progress | completed
	QuoteAmount   float64 `json:"quoteAmount"`
	FinalAmount   float64 `json:"finalAmount"`
	PaymentStatus string  `json:"paymentStatus"` // unpaid | partial | paid
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`

	LeadName string `json:"leadName,omitempty"`
}

func CreateJob(ctx context.Context, db *sql.DB, j *Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = "pending"
	}
	if j.PaymentStatus == "" {
		j.PaymentStatus = "unpaid"
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO jobs (id, lead_id, job_type, description, status, quote_amount, final_amount, payment_status)
VALUES (?,?,?,?,?,?,?,?);`,
		j.ID, j.LeadID, j.JobType, j.Description, j.Status, j.QuoteAmount, j.FinalAmount, j.PaymentStatus)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func ListJobs(ctx context.Context, db *sql.DB) ([]Job, error) {
	rows, err := db.QueryContext(ctx, `
SELECT j.id, j.lead_id, COALESCE(j.job_type,''), COALESCE(j.description,''), j.status,
       COALESCE(j.quote_amount,0), COALESCE(j.final_amount,0), j.payment_status,
       j.created_at, j.updated_at, l.name
FROM jobs j
JOIN leads l ON j.lead_id = l.id
ORDER BY j.created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(
			&j.ID, &j.LeadID, &j.JobType, &j.Description, &j.Status,
			&j.QuoteAmount, &j.FinalAmount, &j.PaymentStatus,
			&j.CreatedAt, &j.UpdatedAt, &j.LeadName,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func ListJobsByLead(ctx context.Context, db *sql.DB, leadID string) ([]Job, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, lead_id, COALESCE(job_type,''), COALESCE(description,''), status,
       COALESCE(quote_amount,0), COALESCE(final_amount,0), payment_status,
       created_at, updated_at
FROM jobs
WHERE lead_id = ?
ORDER BY created_at DESC;`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(
			&j.ID, &j.LeadID, &j.JobType, &j.Description, &j.Status,
			&j.QuoteAmount, &j.FinalAmount, &j.PaymentStatus,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
