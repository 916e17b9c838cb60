package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"rooftrack-engine/internal/store"
)

type InteractionsHandler struct {
	DB *sql.DB
}

func (h InteractionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID    string `json:"lead_id"`
		Type      string `json:"type"`
		Direction string `json:"direction"`
		Summary   string `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.LeadID == "" || req.Summary == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_field", "lead_id and summary are required")
		return
	}

	i := store.Interaction{
		LeadID:    req.LeadID,
		Type:      req.Type,
		Direction: req.Direction,
		Summary:   req.Summary,
		LoggedBy:  UserFrom(r.Context()).Username,
	}
	if err := store.LogInteractionDirected(r.Context(), h.DB, &i); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeData(w, i)
}
