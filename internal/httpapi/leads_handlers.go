package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/followup"
	"rooftrack-engine/internal/pipeline"
	"rooftrack-engine/internal/store"
)

type LeadsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
	Now func() time.Time
}

func (h LeadsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := store.ListLeads(r.Context(), h.DB, 0)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeData(w, leads)
}

type createLeadReq struct {
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Zip            string  `json:"zip"`
	SourceChannel  string  `json:"source_channel"`
	Priority       string  `json:"priority"`
	Notes          string  `json:"notes"`
	EstimatedValue float64 `json:"estimated_value"`
}

func (h LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLeadReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_field", "name is required")
		return
	}

	l := store.Lead{
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		SourceChannel:  req.SourceChannel,
		Priority:       req.Priority,
		Notes:          req.Notes,
		EstimatedValue: req.EstimatedValue,
	}
	if err := store.CreateLead(r.Context(), h.DB, &l); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", "failed to create lead")
		return
	}
	if _, err := store.LogInteraction(r.Context(), h.DB, l.ID, "system", "Lead created manually", UserFrom(r.Context()).Username); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	// Parse the fresh notes for follow-up dates; surfacing what got booked
	// lets the UI show it immediately.
	auto, err := followup.Schedule(r.Context(), h.DB, l.ID, l.Notes, h.now())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeLeadCreated, 1, map[string]any{"id": l.ID}))

	writeData(w, map[string]any{
		"id":               l.ID,
		"message":          "Lead created",
		"autoAppointments": auto,
	})
}

// ByPath routes /api/leads/{id}[/status|/notes].
func (h LeadsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/leads/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "missing lead id")
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case sub == "status" && r.Method == http.MethodPatch:
		h.patchStatus(w, r, id)
	case sub == "notes" && r.Method == http.MethodPut:
		h.putNotes(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h LeadsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	lead, err := store.GetLead(ctx, h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	interactions, err := store.ListInteractionsByLead(ctx, h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	appointments, err := store.ListAppointmentsByLead(ctx, h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	jobs, err := store.ListJobsByLead(ctx, h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	writeData(w, map[string]any{
		"lead":         lead,
		"interactions": interactions,
		"appointments": appointments,
		"jobs":         jobs,
	})
}

func (h LeadsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := store.SoftDeleteLead(r.Context(), h.DB, id, h.now())
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (h LeadsHandler) patchStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "status is required")
		return
	}
	if !pipeline.Known(req.Status) {
		// Stored as-is; worth a trace when a client invents a stage.
		log.Printf("level=warn msg=\"unknown lead status\" lead=%s status=%q", id, req.Status)
	}

	err := pipeline.Transition(r.Context(), h.DB, id, req.Status, h.now())
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", "Update failed")
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeStatusChanged, 1, map[string]any{"id": id, "status": req.Status}))
	writeJSON(w, map[string]any{"success": true})
}

func (h LeadsHandler) putNotes(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	_, err := store.UpdateLead(r.Context(), h.DB, id, store.LeadPatch{Notes: &req.Notes})
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	// Edited notes go through the same parse-and-schedule pass as creation;
	// the dedupe key keeps re-saves from double-booking.
	auto, err := followup.Schedule(r.Context(), h.DB, id, req.Notes, h.now())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeLeadUpdated, 1, map[string]any{"id": id}))
	writeData(w, map[string]any{
		"id":               id,
		"autoAppointments": auto,
	})
}
