package httpapi

import (
	"net/http"
	"time"
)

// NewMux returns the raw mux so main() can still wrap it with middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	ttl := d.SessionTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	authed := Authenticate(d.DB)

	// Auth
	ah := AuthHandler{DB: d.DB, SessionTTL: ttl}
	mux.HandleFunc("/api/auth/login", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Login,
	}))
	mux.HandleFunc("/api/auth/logout", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Logout,
	}))
	mux.Handle("/api/auth/me", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Me,
	})))

	// Leads
	lh := LeadsHandler{DB: d.DB, Hub: d.Hub, Now: d.Now}
	mux.Handle("/api/leads", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  lh.List,
		http.MethodPost: lh.Create,
	})))
	mux.Handle("/api/leads/", authed(http.HandlerFunc(lh.ByPath)))

	// Appointments
	aph := AppointmentsHandler{DB: d.DB, Hub: d.Hub, Now: d.Now}
	mux.Handle("/api/appointments", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  aph.List,
		http.MethodPost: aph.Create,
	})))

	// Interactions
	ih := InteractionsHandler{DB: d.DB}
	mux.Handle("/api/interactions", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Create,
	})))

	// Jobs
	jh := JobsHandler{DB: d.DB, Hub: d.Hub, Now: d.Now}
	mux.Handle("/api/jobs", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.List,
		http.MethodPost: jh.Create,
	})))

	// Dashboard
	dh := DashboardHandler{DB: d.DB}
	mux.Handle("/api/dashboard/summary", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Summary,
	})))

	// Webhooks (public)
	wh := WebhooksHandler{}
	mux.HandleFunc("/api/webhooks/stormwatch", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.StormWatch,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.Handle("/config", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	})))
	mux.Handle("/config/path", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	})))
	mux.Handle("/config/validate", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	})))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.Handle("/api/secrets/imap", authed(methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetIntakePassword,
		http.MethodDelete: sh.DeleteIntakePassword,
	})))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/api/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
