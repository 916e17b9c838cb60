package httpapi

import (
	"database/sql"
	"net/http"

	"rooftrack-engine/internal/store"
)

type DashboardHandler struct {
	DB *sql.DB
}

func (h DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := store.DashboardSummary(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeData(w, s)
}
