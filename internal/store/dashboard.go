package store

import (
	"context"
	"database/sql"
)

type MonthRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
}

type ActivityEntry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	LeadName  string `json:"leadName"`
	CreatedAt string `json:"createdAt"`
}

// Summary is the dashboard contract. Fields and shapes are what the
// dashboard UI renders; all of them are plain rollups over the live tables.
type Summary struct {
	NewLeadsThisWeek  int              `json:"newLeadsThisWeek"`
	AppointmentsToday int              `json:"appointmentsToday"`
	ActiveJobs        int              `json:"activeJobs"`
	RevenueThisMonth  float64          `json:"revenueThisMonth"`
	RevenueLastMonth  float64          `json:"revenueLastMonth"`
	LeadsByStatus     map[string]int   `json:"leadsByStatus"`
	LeadsBySource     map[string]int   `json:"leadsBySource"`
	RevenueByMonth    []MonthRevenue   `json:"revenueByMonth"`
	RecentActivity    []ActivityEntry  `json:"recentActivity"`
}

func DashboardSummary(ctx context.Context, db *sql.DB) (Summary, error) {
	var s Summary
	s.LeadsByStatus = map[string]int{}
	s.LeadsBySource = map[string]int{}

	// Stat cards.
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM leads WHERE deleted_at IS NULL AND created_at > datetime('now','-7 days');`,
	).Scan(&s.NewLeadsThisWeek); err != nil {
		return s, err
	}
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM appointments WHERE date(scheduled_date) = date('now');`,
	).Scan(&s.AppointmentsToday); err != nil {
		return s, err
	}
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM jobs WHERE status IN ('pending','in_progress');`,
	).Scan(&s.ActiveJobs); err != nil {
		return s, err
	}

	// Paid revenue, current and previous calendar month.
	if err := db.QueryRowContext(ctx, `
SELECT COALESCE(sum(final_amount),0) FROM jobs
WHERE payment_status = 'paid'
AND strftime('%Y-%m', updated_at) = strftime('%Y-%m','now');`,
	).Scan(&s.RevenueThisMonth); err != nil {
		return s, err
	}
	if err := db.QueryRowContext(ctx, `
SELECT COALESCE(sum(final_amount),0) FROM jobs
WHERE payment_status = 'paid'
AND strftime('%Y-%m', updated_at) = strftime('%Y-%m','now','-1 month');`,
	).Scan(&s.RevenueLastMonth); err != nil {
		return s, err
	}

	// Pipeline and source breakdowns.
	rows, err := db.QueryContext(ctx,
		`SELECT status, count(*) FROM leads WHERE deleted_at IS NULL GROUP BY status;`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.LeadsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT source_channel, count(*) FROM leads WHERE deleted_at IS NULL GROUP BY source_channel;`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.LeadsBySource[src] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	// Six-month paid revenue trend.
	rows, err = db.QueryContext(ctx, `
SELECT strftime('%Y-%m', updated_at) AS month, sum(final_amount)
FROM jobs
WHERE payment_status = 'paid'
AND updated_at > datetime('now','-6 months')
GROUP BY month
ORDER BY month ASC;`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var mr MonthRevenue
		if err := rows.Scan(&mr.Month, &mr.Revenue); err != nil {
			rows.Close()
			return s, err
		}
		s.RevenueByMonth = append(s.RevenueByMonth, mr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	// Ten most recent audit entries with their lead's name.
	rows, err = db.QueryContext(ctx, `
SELECT i.id, i.type, i.summary, l.name, i.created_at
FROM interactions i
JOIN leads l ON i.lead_id = l.id
ORDER BY i.created_at DESC
LIMIT 10;`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var a ActivityEntry
		if err := rows.Scan(&a.ID, &a.Type, &a.Summary, &a.LeadName, &a.CreatedAt); err != nil {
			rows.Close()
			return s, err
		}
		s.RecentActivity = append(s.RecentActivity, a)
	}
	rows.Close()
	return s, rows.Err()
}
