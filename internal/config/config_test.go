package config

import (
	"testing"
	"time"
)

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("WORD_CONFIDENCE_THRESHOLD", "")
	t.Setenv("SYNC_MAX_BYTES", "")
	t.Setenv("REVIEW_THRESHOLD", "")
	t.Setenv("MAX_ATTEMPTS", "")
	t.Setenv("PROCESSING_TIMEOUT_SECONDS", "")
	t.Setenv("REAP_INTERVAL_SECONDS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.WordConfidenceThreshold != 0.80 {
		t.Fatalf("expected default word confidence 0.80, got %v", cfg.WordConfidenceThreshold)
	}
	if cfg.SyncMaxBytes != 10<<20 {
		t.Fatalf("expected default sync limit 10MiB, got %d", cfg.SyncMaxBytes)
	}
	if cfg.ReviewThreshold != 0.5 {
		t.Fatalf("expected default review threshold 0.5, got %v", cfg.ReviewThreshold)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.ProcessingTimeout() != 5*time.Minute {
		t.Fatalf("expected default processing timeout 5m, got %v", cfg.ProcessingTimeout())
	}
	if cfg.ReapInterval() != 30*time.Second {
		t.Fatalf("expected default reap interval 30s, got %v", cfg.ReapInterval())
	}
	if cfg.NATSSubject != "documents.analyze" {
		t.Fatalf("expected default subject documents.analyze, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("REVIEW_THRESHOLD", "0.7")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("PROCESSING_TIMEOUT_SECONDS", "120")
	t.Setenv("VENDOR_RPS", "2.5")
	t.Setenv("VENDOR_BURST", "4")

	cfg := Load()
	if cfg.ReviewThreshold != 0.7 {
		t.Fatalf("expected review threshold 0.7, got %v", cfg.ReviewThreshold)
	}
	if cfg.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.MaxAttempts)
	}
	if cfg.ProcessingTimeout() != 2*time.Minute {
		t.Fatalf("expected processing timeout 2m, got %v", cfg.ProcessingTimeout())
	}
	if cfg.VendorRPS != 2.5 {
		t.Fatalf("expected vendor rps 2.5, got %v", cfg.VendorRPS)
	}
	if cfg.VendorBurst != 4 {
		t.Fatalf("expected vendor burst 4, got %d", cfg.VendorBurst)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS", "many")
	t.Setenv("REVIEW_THRESHOLD", "high")

	cfg := Load()
	if cfg.MaxAttempts != 3 || cfg.ReviewThreshold != 0.5 {
		t.Fatalf("malformed values must fall back to defaults, got %d %v", cfg.MaxAttempts, cfg.ReviewThreshold)
	}
}
