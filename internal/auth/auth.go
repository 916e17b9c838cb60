// Package auth is deliberately thin: bcrypt password checks and opaque
// session tokens in the store. Hardening it further is out of scope.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rooftrack-engine/internal/store"
)

const CookieName = "rooftrack_session"

var ErrInvalidCredentials = errors.New("invalid credentials")

func newToken() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// Login checks the password and mints a session valid for ttl.
func Login(ctx context.Context, db *sql.DB, username, password string, ttl time.Duration) (store.User, string, error) {
	u, err := store.GetUserByUsername(ctx, db, username)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.User{}, "", ErrInvalidCredentials
	}

	token := newToken()
	if err := store.CreateSession(ctx, db, token, u.ID, time.Now().Add(ttl)); err != nil {
		return store.User{}, "", err
	}
	return u, token, nil
}

func Logout(ctx context.Context, db *sql.DB, token string) error {
	return store.DeleteSession(ctx, db, token)
}

// UserFromToken resolves a live session; expired or unknown tokens come back
// as ErrInvalidCredentials.
func UserFromToken(ctx context.Context, db *sql.DB, token string) (store.User, error) {
	if token == "" {
		return store.User{}, ErrInvalidCredentials
	}
	u, err := store.SessionUser(ctx, db, token, time.Now())
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	return u, err
}

// SeedAdmin creates the initial admin account when the users table is empty,
// so a fresh install can log in at all.
func SeedAdmin(ctx context.Context, db *sql.DB, username, password string) (created bool, err error) {
	n, err := store.CountUsers(ctx, db)
	if err != nil || n > 0 {
		return false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := store.CreateUser(ctx, db, username, hash, "Admin", "admin"); err != nil {
		return false, err
	}
	return true, nil
}
