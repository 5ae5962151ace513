package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting, loaded from CELLTRACK_* environment
// variables.
type Config struct {
	Env        string `env:"CELLTRACK_ENV"         envDefault:"development"`
	ListenAddr string `env:"CELLTRACK_LISTEN_ADDR" envDefault:":8080"`
	DBPath     string `env:"CELLTRACK_DB_PATH"     envDefault:"celltrack.db"`

	// EditWindow is the span after a meeting during which edits stay
	// unconditionally immediate.
	EditWindow time.Duration `env:"CELLTRACK_EDIT_WINDOW" envDefault:"48h"`
	// PDCutoff is the global contribution cutoff date (YYYY-MM-DD), set by
	// the PD secretary. Empty means no cutoff is in force.
	PDCutoff string `env:"CELLTRACK_PD_CUTOFF"`

	CSRFKey string `env:"CELLTRACK_CSRF_KEY"`

	ResendKey string   `env:"CELLTRACK_RESEND_KEY"`
	EmailFrom string   `env:"CELLTRACK_EMAIL_FROM" envDefault:"CellTrack <noreply@celltrack.app>"`
	Notify    []string `env:"CELLTRACK_NOTIFY"     envSeparator:","`

	AdminEmail    string `env:"CELLTRACK_ADMIN_EMAIL"`
	AdminPassword string `env:"CELLTRACK_ADMIN_PASSWORD"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// CSRFKeyBytes decodes the configured CSRF secret. Nil means unset; the
// server decides whether that is acceptable for its environment.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("CELLTRACK_CSRF_KEY must be 64 hex characters (32 bytes)")
	}
	return key, nil
}

// CutoffDate parses the configured PD cutoff. The zero time means no cutoff.
func (c Config) CutoffDate() (time.Time, error) {
	if c.PDCutoff == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", c.PDCutoff, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse CELLTRACK_PD_CUTOFF: %w", err)
	}
	// The cutoff day itself is still writable; writes close at its end.
	return t.Add(24 * time.Hour), nil
}
