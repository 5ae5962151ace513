package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "celltrack/internal/adapters/email"
	web "celltrack/internal/adapters/http"
	"celltrack/internal/adapters/http/perf"
	"celltrack/internal/adapters/storage"
	accountStore "celltrack/internal/adapters/storage/account"
	cellStore "celltrack/internal/adapters/storage/cell"
	membershipStore "celltrack/internal/adapters/storage/membership"
	occurrenceStore "celltrack/internal/adapters/storage/occurrence"
	outboxStorePkg "celltrack/internal/adapters/storage/outbox"
	"celltrack/internal/application/orchestrators"
	"celltrack/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	// Create store instances (using timed DB for query instrumentation)
	acctStore := accountStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:    acctStore,
		CellStore:       cellStore.NewSQLiteStore(timedDB),
		MembershipStore: membershipStore.NewSQLiteStore(timedDB),
		OccurrenceStore: occurrenceStore.NewSQLiteStore(timedDB),
		OutboxStore:     outboxStorePkg.NewSQLiteStore(timedDB),
	}

	// Seed default administrator account if no accounts exist
	adminEmail := cfg.AdminEmail
	adminPassword := cfg.AdminPassword
	if adminEmail != "" && adminPassword != "" {
		seedDeps := orchestrators.CreateAccountDeps{AccountStore: acctStore}
		if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, adminEmail, adminPassword); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
	} else if !cfg.IsProduction() {
		log.Println("WARNING: CELLTRACK_ADMIN_EMAIL/CELLTRACK_ADMIN_PASSWORD not set, no admin account seeded")
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: CELLTRACK_RESEND_KEY is not set, email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set CELLTRACK_RESEND_KEY for real delivery)")
		}
	}
	web.SetEmailSender(sender)

	// Start outbox background worker for retrying notification delivery
	outboxStopCh := make(chan struct{})
	outboxProcessor := orchestrators.NewOutboxProcessor(stores.OutboxStore, orchestrators.DefaultExecutors(sender))
	orchestrators.StartBackgroundWorker(outboxProcessor, 1*time.Minute, outboxStopCh)
	defer close(outboxStopCh)

	cutoff, err := cfg.CutoffDate()
	if err != nil {
		log.Fatalf("invalid cutoff date: %v", err)
	}
	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		log.Fatalf("invalid CSRF key: %v", err)
	}

	// Create HTTP handler with middleware (pass collector for timing + dashboard)
	mux := web.NewMux(stores, collector, web.EngineParams{
		EditWindow:       cfg.EditWindow,
		PDCutoff:         cutoff,
		NotifyRecipients: cfg.Notify,
		CSRFKey:          csrfKey,
		Production:       cfg.IsProduction(),
	})

	// Start server
	log.Printf("CellTrack %s starting on %s (env=%s)", version, cfg.ListenAddr, cfg.Env)

	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
