package events

import (
	"encoding/json"
	"time"
)

// Event types pushed to the dashboard over SSE.
const (
	TypeLeadCreated        = "lead_created"
	TypeLeadUpdated        = "lead_updated"
	TypeStatusChanged      = "status_changed"
	TypeAppointmentCreated = "appointment_created"
	TypeJobCreated         = "job_created"
	TypeReminderSent       = "reminder_sent"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
