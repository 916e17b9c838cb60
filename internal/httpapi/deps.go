package httpapi

import (
	"database/sql"
	"sync/atomic"
	"time"

	"rooftrack-engine/internal/config"
	"rooftrack-engine/internal/events"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic store, holds config.Config
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Session lifetime for logins
	SessionTTL time.Duration

	// Injectable clock for handler tests
	Now func() time.Time
}
