// Command fdscore runs the flight difficulty scoring pipeline over a
// directory of operational CSV extracts and writes the score and report
// artifacts. With -list-runs it prints previously persisted runs instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/airside-data/difficulty.report/internal/config"
	"github.com/airside-data/difficulty.report/internal/pipeline"
	"github.com/airside-data/difficulty.report/internal/store"
	"github.com/airside-data/difficulty.report/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file (optional)")
	dataDir    = flag.String("data", "", "Input data directory (overrides config)")
	outDir     = flag.String("out", "", "Output artifact directory (overrides config)")
	figDir     = flag.String("figures", "", "Figure output directory (overrides config)")
	dbPath     = flag.String("db", "", "Run database path (overrides config; empty keeps config value)")
	threshold  = flag.Int("delay-threshold", 0, "Departure delay minutes counted as difficult (overrides config)")
	noCharts   = flag.Bool("no-charts", false, "Skip PNG/HTML figure generation")
	listRuns   = flag.Bool("list-runs", false, "List persisted runs and exit")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println("fdscore", version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if *figDir != "" {
		cfg.FigDir = *figDir
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *threshold > 0 {
		cfg.DelayThresholdMin = *threshold
	}
	if *noCharts {
		cfg.WriteCharts = false
	}

	if *listRuns {
		if err := printRuns(cfg.DBPath); err != nil {
			log.Fatalf("list runs: %v", err)
		}
		return
	}

	res, err := pipeline.Run(cfg, nil)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}
	fmt.Printf("scored %d flights (%d difficult, model=%s)\n",
		res.FlightCount, res.DifficultCount, res.ModelKind)
	fmt.Printf("artifacts written to %s\n", cfg.OutDir)
	if res.RunID != "" {
		fmt.Printf("run %s recorded in %s\n", res.RunID, cfg.DBPath)
	}
}

func printRuns(path string) error {
	if path == "" {
		return fmt.Errorf("no run database configured")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("run database %s: %w", path, err)
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  flights=%d difficult=%d model=%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.FlightCount, r.DifficultCount, r.ModelKind)
	}
	return nil
}
