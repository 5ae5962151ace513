package config

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestCSRFKeyBytes(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		key, err := Config{}.CSRFKeyBytes()
		if err != nil || key != nil {
			t.Errorf("CSRFKeyBytes() = %v, %v; want nil, nil", key, err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		cfg := Config{CSRFKey: strings.Repeat("ab", 32)}
		key, err := cfg.CSRFKeyBytes()
		if err != nil {
			t.Fatalf("CSRFKeyBytes() error = %v", err)
		}
		if !bytes.Equal(key, bytes.Repeat([]byte{0xab}, 32)) {
			t.Errorf("decoded key = %x", key)
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		cfg := Config{CSRFKey: "abcd"}
		if _, err := cfg.CSRFKeyBytes(); err == nil {
			t.Error("a short key must be rejected")
		}
	})

	t.Run("not hex", func(t *testing.T) {
		cfg := Config{CSRFKey: strings.Repeat("zz", 32)}
		if _, err := cfg.CSRFKeyBytes(); err == nil {
			t.Error("a non-hex key must be rejected")
		}
	})
}

func TestCutoffDate(t *testing.T) {
	t.Run("unset means no cutoff", func(t *testing.T) {
		cutoff, err := Config{}.CutoffDate()
		if err != nil || !cutoff.IsZero() {
			t.Errorf("CutoffDate() = %v, %v; want zero, nil", cutoff, err)
		}
	})

	t.Run("the cutoff day itself stays writable", func(t *testing.T) {
		cfg := Config{PDCutoff: "2024-03-31"}
		cutoff, err := cfg.CutoffDate()
		if err != nil {
			t.Fatalf("CutoffDate() error = %v", err)
		}
		want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		if !cutoff.Equal(want) {
			t.Errorf("CutoffDate() = %v, want %v", cutoff, want)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		cfg := Config{PDCutoff: "31/03/2024"}
		if _, err := cfg.CutoffDate(); err == nil {
			t.Error("an invalid cutoff must be rejected")
		}
	})
}
