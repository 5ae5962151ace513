package web

import (
	"crypto/rand"
	"log"
	"net/http"
	"time"

	"celltrack/internal/adapters/email"
	"celltrack/internal/adapters/http/middleware"
	"celltrack/internal/adapters/http/perf"
	accountStore "celltrack/internal/adapters/storage/account"
	cellStore "celltrack/internal/adapters/storage/cell"
	membershipStore "celltrack/internal/adapters/storage/membership"
	occurrenceStore "celltrack/internal/adapters/storage/occurrence"
	outboxStore "celltrack/internal/adapters/storage/outbox"
	"celltrack/internal/domain/identity"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	CellStore       cellStore.Store
	MembershipStore membershipStore.Store
	OccurrenceStore occurrenceStore.Store
	OutboxStore     outboxStore.Store
}

// EngineParams carries the externally owned policy settings the engine
// consumes: the edit window span and the PD secretary's cutoff date.
type EngineParams struct {
	EditWindow time.Duration
	PDCutoff   time.Time
	// Recipients for promotion and pending-edit notifications.
	NotifyRecipients []string
	// CSRFKey is the decoded 32-byte CSRF secret from the configuration.
	// Nil is tolerated outside production with a throwaway key.
	CSRFKey    []byte
	Production bool
}

// csrfKeyFor returns the configured CSRF secret, or generates a throwaway one
// for development runs.
func csrfKeyFor(p EngineParams) []byte {
	if len(p.CSRFKey) == 32 {
		return p.CSRFKey
	}
	if p.Production {
		log.Fatal("CELLTRACK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using a random CSRF key, sessions will not survive a restart. Set CELLTRACK_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global engine params (set by NewMux)
var params EngineParams

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global per-cell optimistic month views (set by NewMux)
var views *monthViews

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender) {
	emailSender = sender
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, collector *perf.Collector, p EngineParams) http.Handler {
	stores = s
	perfCollector = collector
	params = p
	sessions = middleware.NewSessionStore()
	views = newMonthViews()

	mux := http.NewServeMux()
	registerRoutes(mux)

	// CSRF key: 32-byte secret routed through the configuration
	csrfKey := csrfKeyFor(p)

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.Handle("/change-password", middleware.RequireAuth(http.HandlerFunc(handleChangePassword)))

	mux.Handle("/cells/", middleware.RequireAuth(http.HandlerFunc(handleCells)))
	mux.Handle("/occurrences/", middleware.RequireAuth(http.HandlerFunc(handleOccurrences)))
	mux.Handle("/pending-edits", middleware.Chain(
		http.HandlerFunc(handleListPendingEdits),
		middleware.RequireCapability(identity.CapApproveEdits),
	))

	mux.Handle("/admin/outbox", middleware.Chain(
		http.HandlerFunc(handleAdminOutbox),
		middleware.RequireCapability(identity.CapAdministrator),
	))
	mux.Handle("/admin/outbox/", middleware.Chain(
		http.HandlerFunc(handleAdminOutbox),
		middleware.RequireCapability(identity.CapAdministrator),
	))
	mux.Handle("/admin/perf", middleware.Chain(
		http.HandlerFunc(handleAdminPerf),
		middleware.RequireCapability(identity.CapAdministrator),
	))
}
