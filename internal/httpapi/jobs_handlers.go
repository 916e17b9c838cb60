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

type JobsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
	Now func() time.Time
}

func (h JobsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeData(w, jobs)
}

func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID      string  `json:"lead_id"`
		JobType     string  `json:"job_type"`
		Description string  `json:"description"`
		QuoteAmount float64 `json:"quote_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.LeadID == "" || req.JobType == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_field", "lead_id and job_type are required")
		return
	}

	ctx := r.Context()
	if _, err := store.GetLead(ctx, h.DB, req.LeadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, r, http.StatusNotFound, "not_found", "Lead not found")
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	j := store.Job{
		LeadID:      req.LeadID,
		JobType:     req.JobType,
		Description: req.Description,
		QuoteAmount: req.QuoteAmount,
	}
	if err := store.CreateJob(ctx, h.DB, &j); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	// Opening a job means the customer said yes; move the lead forward.
	if err := pipeline.Transition(ctx, h.DB, j.LeadID, pipeline.StatusAccepted, h.now()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	summary := fmt.Sprintf("Job opened: %s", j.JobType)
	if _, err := store.LogInteraction(ctx, h.DB, j.LeadID, "system", summary, UserFrom(ctx).Username); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	reqID := RequestIDFrom(ctx)
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobCreated, 1, map[string]any{"id": j.ID, "leadId": j.LeadID}))
	writeData(w, j)
}
