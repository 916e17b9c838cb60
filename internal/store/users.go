package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (User, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, username, password_hash, COALESCE(name,''), role
FROM users
WHERE username = ?;`, username)

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT count(*) FROM users;`).Scan(&n)
	return n, err
}

func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, name, role string) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx, `
INSERT INTO users (id, username, password_hash, name, role)
VALUES (?,?,?,?,?);`, id, username, passwordHash, name, role)
	return id, err
}

func CreateSession(ctx context.Context, db *sql.DB, token, userID string, expires time.Time) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO sessions (token, user_id, expires_at)
VALUES (?,?,?);`, token, userID, SQLTime(expires))
	return err
}

// SessionUser resolves a session token to its user, ignoring expired sessions.
func SessionUser(ctx context.Context, db *sql.DB, token string, now time.Time) (User, error) {
	row := db.QueryRowContext(ctx, `
SELECT u.id, u.username, u.password_hash, COALESCE(u.name,''), u.role
FROM sessions s
JOIN users u ON s.user_id = u.id
WHERE s.token = ? AND s.expires_at > ?;`, token, SQLTime(now))

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func DeleteSession(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?;`, token)
	return err
}

// MarkIntakeMessage records an email Message-ID as processed. Returns false
// when the id was already recorded, which is how the mail intake pass stays
// idempotent across restarts.
func MarkIntakeMessage(ctx context.Context, db *sql.DB, messageID string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO intake_messages (message_id) VALUES (?);`, messageID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
