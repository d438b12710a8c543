// Package config holds pipeline settings. Settings come from defaults,
// optionally overlaid by a JSON file, then by command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the full pipeline configuration. Zero values are never used
// directly; start from Default and overlay.
type Config struct {
	// DataDir holds the input CSVs (flight, passenger, bag, airport tables).
	DataDir string `json:"data_dir"`
	// OutDir receives CSV and markdown artifacts.
	OutDir string `json:"out_dir"`
	// FigDir receives charts. Defaults to a sibling of OutDir.
	FigDir string `json:"fig_dir"`
	// DBPath is the SQLite run database. Empty disables persistence.
	DBPath string `json:"db_path"`

	// DelayThresholdMin is the departure delay, in minutes, at or above
	// which a flight counts as difficult.
	DelayThresholdMin int `json:"delay_threshold_min"`

	// Seed feeds the trainer for reproducible fits.
	Seed int64 `json:"seed"`

	// WriteCharts toggles PNG/HTML figure generation.
	WriteCharts bool `json:"write_charts"`
}

// Default returns the canonical configuration.
func Default() Config {
	return Config{
		DataDir:           "data",
		OutDir:            "outputs",
		FigDir:            "figures",
		DBPath:            "runs.db",
		DelayThresholdMin: 45,
		Seed:              42,
		WriteCharts:       true,
	}
}

// Load reads a JSON file over the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must be set")
	}
	if c.FigDir == "" {
		return fmt.Errorf("fig_dir must be set")
	}
	if c.DelayThresholdMin <= 0 {
		return fmt.Errorf("delay_threshold_min must be positive, got %d", c.DelayThresholdMin)
	}
	return nil
}
