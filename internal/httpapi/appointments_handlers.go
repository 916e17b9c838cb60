package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/pipeline"
	"rooftrack-engine/internal/store"
)

type AppointmentsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
	Now func() time.Time
}

func (h AppointmentsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := store.ListAppointments(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeData(w, appts)
}

func (h AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID        string `json:"lead_id"`
		Type          string `json:"type"`
		ScheduledDate string `json:"scheduled_date"`
		ScheduledTime string `json:"scheduled_time"`
		Address       string `json:"address"`
		Notes         string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.LeadID == "" || req.ScheduledDate == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_field", "lead_id and scheduled_date are required")
		return
	}

	ctx := r.Context()
	lead, err := store.GetLead(ctx, h.DB, req.LeadID)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	a := store.Appointment{
		LeadID:        req.LeadID,
		Type:          req.Type,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
		Address:       req.Address,
		Notes:         req.Notes,
	}
	if a.Address == "" {
		a.Address = lead.Address
	}
	if err := store.CreateAppointment(ctx, h.DB, &a); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	summary := fmt.Sprintf("Scheduled %s for %s", a.Type, a.ScheduledDate)
	if _, err := store.LogInteraction(ctx, h.DB, a.LeadID, "system", summary, UserFrom(ctx).Username); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if _, err := pipeline.AdvanceOnAppointment(ctx, h.DB, a.LeadID, h.now()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(ctx)
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeAppointmentCreated, 1, map[string]any{"id": a.ID, "leadId": a.LeadID}))
	writeData(w, a)
}
