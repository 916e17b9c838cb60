package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// BotUser is a chat-bot account. Accounts self-register on first contact and
// stay unapproved until an admin flips them on.
type BotUser struct {
	ID          string `json:"id"`
	ChatID      string `json:"chatId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Approved    bool   `json:"approved"`
	CreatedAt   string `json:"createdAt"`
}

func GetBotUser(ctx context.Context, db *sql.DB, chatID string) (BotUser, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, chat_id, COALESCE(username,''), COALESCE(display_name,''), role, approved, created_at
FROM bot_users
WHERE chat_id = ?;`, chatID)

	var u BotUser
	var approved int
	err := row.Scan(&u.ID, &u.ChatID, &u.Username, &u.DisplayName, &u.Role, &approved, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BotUser{}, ErrNotFound
	}
	u.Approved = approved != 0
	return u, err
}

// GetOrCreateBotUser registers the chat account on first contact. Admins are
// approved immediately; everyone else waits for approval.
func GetOrCreateBotUser(ctx context.Context, db *sql.DB, chatID, username, displayName string, admin bool) (BotUser, error) {
	u, err := GetBotUser(ctx, db, chatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return BotUser{}, err
	}

	role := "contractor"
	approved := 0
	if admin {
		role = "admin"
		approved = 1
	}
	if displayName == "" {
		displayName = "Unknown"
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO bot_users (id, chat_id, username, display_name, role, approved)
VALUES (?,?,?,?,?,?);`,
		uuid.NewString(), chatID, username, displayName, role, approved)
	if err != nil {
		return BotUser{}, err
	}
	return GetBotUser(ctx, db, chatID)
}

func ApproveBotUser(ctx context.Context, db *sql.DB, chatID string) error {
	res, err := db.ExecContext(ctx, `UPDATE bot_users SET approved = 1 WHERE chat_id = ?;`, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
