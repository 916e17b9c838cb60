package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"rooftrack-engine/internal/config"
	"rooftrack-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setIntakePasswordReq struct {
	Password string `json:"password"`
}

func (h SecretsHandler) SetIntakePassword(w http.ResponseWriter, r *http.Request) {
	var req setIntakePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetIntakePassword(secrets.IntakeKeyringAccount(cfg), req.Password); err != nil {
		http.Error(w, "failed to store password: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteIntakePassword(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.DeleteIntakePassword(secrets.IntakeKeyringAccount(cfg)); err != nil {
		http.Error(w, "failed to delete password: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
