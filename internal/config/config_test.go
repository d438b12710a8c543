package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DelayThresholdMin != 45 {
		t.Fatalf("default delay threshold = %d, want 45", cfg.DelayThresholdMin)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"data_dir": "/srv/flights", "delay_threshold_min": 60}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/flights" {
		t.Fatalf("data_dir = %q", cfg.DataDir)
	}
	if cfg.DelayThresholdMin != 60 {
		t.Fatalf("delay_threshold_min = %d, want 60", cfg.DelayThresholdMin)
	}
	// Untouched fields keep defaults.
	if cfg.OutDir != "outputs" || cfg.Seed != 42 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := Default()
	cfg.DelayThresholdMin = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero threshold")
	}
}
