package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"rooftrack-engine/internal/auth"
)

type AuthHandler struct {
	DB         *sql.DB
	SessionTTL time.Duration
}

func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	u, token, err := auth.Login(r.Context(), h.DB, req.Username, req.Password, h.SessionTTL)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.SessionTTL),
	})
	writeData(w, map[string]any{
		"user": map[string]any{"id": u.ID, "username": u.Username, "name": u.Name, "role": u.Role},
	})
}

func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		if err := auth.Logout(r.Context(), h.DB, c.Value); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, map[string]any{"success": true})
}

// Me reports the authenticated user; it sits behind the auth middleware.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	writeData(w, map[string]any{
		"user": map[string]any{"id": u.ID, "username": u.Username, "name": u.Name, "role": u.Role},
	})
}
