package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

type WebhooksHandler struct{}

// StormWatch receives storm-alert callbacks. Unauthenticated; the payload is
// logged for now until the provider integration lands.
func (h WebhooksHandler) StormWatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "read_error", err.Error())
		return
	}

	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}
	log.Printf("level=info msg=\"stormwatch webhook received\" bytes=%d", len(body))
	writeJSON(w, map[string]any{"success": true})
}
