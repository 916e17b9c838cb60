package store

import (
	"database/sql"
	"fmt"
)

// Migrate runs the one-time schema migration. It must be called at startup,
// before any traffic is served.
func Migrate(db *sql.DB) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT,
  email TEXT,
  address TEXT,
  city TEXT,
  state TEXT,
  zip TEXT,
  status TEXT NOT NULL DEFAULT 'new',
  priority TEXT NOT NULL DEFAULT 'warm',
  source_channel TEXT NOT NULL DEFAULT 'manual',
  notes TEXT,
  estimated_value REAL,
  contacted_at TEXT,
  quoted_at TEXT,
  accepted_at TEXT,
  scheduled_at TEXT,
  completed_at TEXT,
  paid_at TEXT,
  review_received_at TEXT,
  lost_at TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  deleted_at TEXT
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS appointments (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL REFERENCES leads(id),
  type TEXT NOT NULL DEFAULT 'inspection',
  scheduled_date TEXT NOT NULL,
  scheduled_time TEXT,
  address TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'scheduled',
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	// Append-only audit trail. Rows are never updated or deleted.
	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS interactions (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL REFERENCES leads(id),
  type TEXT NOT NULL DEFAULT 'note',
  direction TEXT NOT NULL DEFAULT 'internal',
  summary TEXT NOT NULL,
  logged_by TEXT NOT NULL DEFAULT 'system',
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  lead_id TEXT NOT NULL REFERENCES leads(id),
  job_type TEXT,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  quote_amount REAL,
  final_amount REAL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reminders (
  id TEXT PRIMARY KEY,
  chat_user_id TEXT NOT NULL,
  lead_id TEXT REFERENCES leads(id),
  remind_at TEXT NOT NULL,
  message TEXT NOT NULL,
  sent INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS bot_users (
  id TEXT PRIMARY KEY,
  chat_id TEXT NOT NULL UNIQUE,
  username TEXT,
  display_name TEXT,
  role TEXT NOT NULL DEFAULT 'contractor',
  approved INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT,
  role TEXT NOT NULL DEFAULT 'admin',
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	// Message-IDs already turned into leads by the mail intake pass.
	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS intake_messages (
  message_id TEXT PRIMARY KEY,
  processed_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_lead ON appointments(lead_id);`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(scheduled_date);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_lead ON interactions(lead_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_lead ON jobs(lead_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(sent, remind_at);`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// Back-compat for dev DBs created before estimated_value landed.
	if !columnExists(tx, "leads", "estimated_value") {
		if _, err := tx.Exec(`ALTER TABLE leads ADD COLUMN estimated_value REAL;`); err != nil {
			return err
		}
	}

	// Mark schema v1
	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func columnExists(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRow(query, col).Scan(&one)
	return err == nil
}
