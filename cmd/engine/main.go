package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"rooftrack-engine/internal/auth"
	"rooftrack-engine/internal/bot"
	"rooftrack-engine/internal/config"
	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/httpapi"
	"rooftrack-engine/internal/mailintake"
	"rooftrack-engine/internal/scheduler"
	"rooftrack-engine/internal/store"
)

func main() {
	// Data dir: use env if provided, else local folder.
	dataDir := os.Getenv("ROOFTRACK_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// Single instance per data dir; two engines sharing one SQLite file plus
	// pollers would double-send reminders.
	lock := flock.New(filepath.Join(dataDir, "rooftrack.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running against %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		raw, err := config.Load(userCfgPath)
		if err != nil {
			return config.Config{}, err
		}
		normalized, vr := config.NormalizeAndValidate(raw)
		for _, w := range vr.Warnings {
			log.Printf("level=warn msg=\"config\" warning=%q", w)
		}
		if !vr.OK() {
			return config.Config{}, fmt.Errorf("config invalid: %v", vr.Errors)
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "rooftrack.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminPass := os.Getenv("ROOFTRACK_ADMIN_PASSWORD")
	if adminPass == "" {
		adminPass = "admin"
	}
	created, err := auth.SeedAdmin(ctx, db.Pool, "admin", adminPass)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		log.Printf("level=info msg=\"seeded admin user\" username=admin")
	}

	hub := events.NewHub()

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		SessionTTL:  time.Duration(cfg.Auth.SessionHours) * time.Hour,
	})
	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("level=info msg=\"engine listening\" addr=http://%s db=%s", addr, dbPath)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Reminders go to stdout until a chat transport is configured; the rate
	// limiter still applies so a real sender can be swapped in untouched.
	var sender bot.Sender = bot.SenderFunc(func(ctx context.Context, chatUserID, text string) error {
		log.Printf("level=info msg=\"reminder\" chat_user=%s text=%q", chatUserID, text)
		return nil
	})
	sender = bot.NewRateLimitedSender(sender, cfg.Bot.SendPerSecond, cfg.Bot.SendBurst)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	g.Go(func() error {
		interval := time.Duration(cfg.Bot.ReminderSeconds) * time.Second
		scheduler.Every(gctx, interval, "reminders", func(ctx context.Context) error {
			n, err := bot.CheckReminders(ctx, db.Pool, sender, hub, time.Now())
			if n > 0 {
				log.Printf("level=info msg=\"reminders delivered\" count=%d", n)
			}
			return err
		})
		return nil
	})

	g.Go(func() error {
		interval := time.Duration(cfg.Intake.PollSeconds) * time.Second
		scheduler.Every(gctx, interval, "mail-intake", func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			if !cur.Intake.Enabled {
				return nil
			}
			n, err := mailintake.RunOnce(db.Pool, cur, hub, time.Now())
			if n > 0 {
				log.Printf("level=info msg=\"intake leads created\" count=%d", n)
			}
			return err
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Printf("level=info msg=\"engine stopped\"")
}
