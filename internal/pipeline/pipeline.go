// Package pipeline wires the full scoring run: input discovery, feature
// assembly, labeling, training, scoring and artifact generation.
package pipeline

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/airside-data/difficulty.report/internal/config"
	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/model"
	"github.com/airside-data/difficulty.report/internal/monitoring"
	"github.com/airside-data/difficulty.report/internal/report"
	"github.com/airside-data/difficulty.report/internal/security"
	"github.com/airside-data/difficulty.report/internal/store"
)

// Input file discovery keys, matched case- and spacing-insensitively
// against the CSVs in the data directory.
var (
	flightCandidates  = []string{"Flight Level Data", "FlightLevelData", "flights"}
	pnrCandidates     = []string{"PNR+Flight+Level+Data", "PNR Flight Level", "PNRFlight"}
	bagCandidates     = []string{"Bag+Level+Data", "Bag Level Data", "bags"}
	airportCandidates = []string{"Airports Data", "AirportsData", "airports"}
)

// Result summarizes one completed run.
type Result struct {
	RunID          string
	FlightCount    int
	DifficultCount int
	ModelKind      string
	Scored         []flightops.Flight
}

// Run executes the whole pipeline under cfg. A nil trainer scores with the
// constant-probability fallback.
func Run(cfg config.Config, tr model.Trainer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	startedAt := time.Now().UTC()

	flights, pnr, bags, airports, err := loadInputs(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	table, err := flightops.MergeAll(flights, pnr, bags)
	if err != nil {
		return nil, fmt.Errorf("assemble features: %w", err)
	}
	if dups := flightops.DuplicateKeys(table.Flights); len(dups) > 0 {
		monitoring.Logf("warning: %d duplicate flight keys; first is %+v", len(dups), dups[0])
	}

	table = flightops.Label(table, float64(cfg.DelayThresholdMin))
	table = flightops.AddRollingRisk(table)
	table = flightops.EnrichAirports(table, airports)

	m, err := model.Train(tr, table.Flights)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	scored := model.Score(m, table.Flights)

	if err := writeArtifacts(cfg, m, scored); err != nil {
		return nil, err
	}

	res := &Result{
		FlightCount: len(scored),
		ModelKind:   store.ModelKindFitted,
		Scored:      scored,
	}
	for i := range scored {
		if scored[i].Difficult {
			res.DifficultCount++
		}
	}
	if m.IsConstant() {
		res.ModelKind = store.ModelKindConstant
	}

	if cfg.DBPath != "" {
		res.RunID = store.NewRunID()
		if err := persistRun(cfg, m, res, startedAt); err != nil {
			return nil, err
		}
	}

	monitoring.Logf("run complete: %d flights scored, %d difficult, model=%s",
		res.FlightCount, res.DifficultCount, res.ModelKind)
	return res, nil
}

// loadInputs discovers and reads the input CSVs. The airport table is
// optional; without it the international and hub-country signals stay
// missing.
func loadInputs(dataDir string) (flights, pnr, bags *frame.Frame, airports map[string]flightops.Airport, err error) {
	read := func(candidates []string, what string) (*frame.Frame, error) {
		path, err := frame.FindCSV(dataDir, candidates)
		if err != nil {
			return nil, fmt.Errorf("locate %s table: %w", what, err)
		}
		if err := security.ValidatePathWithinDirectory(path, dataDir); err != nil {
			return nil, fmt.Errorf("%s table: %w", what, err)
		}
		f, err := frame.ReadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("read %s table: %w", what, err)
		}
		monitoring.Logf("loaded %s table from %s (%d rows)", what, path, f.Len())
		return f, nil
	}

	if flights, err = read(flightCandidates, "flight"); err != nil {
		return nil, nil, nil, nil, err
	}
	if pnr, err = read(pnrCandidates, "passenger"); err != nil {
		return nil, nil, nil, nil, err
	}
	if bags, err = read(bagCandidates, "bag"); err != nil {
		return nil, nil, nil, nil, err
	}

	apFrame, apErr := read(airportCandidates, "airport")
	if apErr != nil {
		monitoring.Logf("airport table unavailable (%v); country enrichment skipped", apErr)
		return flights, pnr, bags, nil, nil
	}
	airports, err = flightops.AirportsFromFrame(apFrame)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("parse airport table: %w", err)
	}
	return flights, pnr, bags, airports, nil
}

func writeArtifacts(cfg config.Config, m *model.Model, scored []flightops.Flight) error {
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := model.WriteScores(cfg.OutDir, scored); err != nil {
		return err
	}
	if err := model.WriteImportances(cfg.OutDir, m); err != nil {
		return err
	}
	if err := report.WriteDailyRankings(cfg.OutDir, scored); err != nil {
		return err
	}

	dests := report.DestinationConsistency(scored)
	if err := report.WriteDestinationConsistency(cfg.OutDir, dests); err != nil {
		return err
	}
	focus := make([]string, 0, 20)
	for _, d := range dests {
		focus = append(focus, d.ArrAirport)
		if len(focus) == 20 {
			break
		}
	}
	drivers := report.DestinationDrivers(scored, focus)
	if err := report.WriteDestinationDrivers(cfg.OutDir, drivers); err != nil {
		return err
	}
	if err := report.WriteOpsRecos(cfg.OutDir, dests, drivers); err != nil {
		return err
	}
	if err := report.WriteEDA(cfg.OutDir, scored); err != nil {
		return err
	}

	if cfg.WriteCharts {
		if err := report.WriteCharts(cfg.FigDir, scored); err != nil {
			return err
		}
		if err := report.WriteOverviewHTML(cfg.FigDir, scored); err != nil {
			return err
		}
	}
	return nil
}

func persistRun(cfg config.Config, m *model.Model, res *Result, startedAt time.Time) error {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	run := store.Run{
		ID:                res.RunID,
		StartedAt:         startedAt,
		FinishedAt:        time.Now().UTC(),
		FlightCount:       res.FlightCount,
		DifficultCount:    res.DifficultCount,
		ModelKind:         res.ModelKind,
		DelayThresholdMin: cfg.DelayThresholdMin,
	}
	if m.IsConstant() {
		run.ConstantProb = sql.NullFloat64{Float64: m.ConstantProb(), Valid: true}
	}
	if err := s.SaveRun(run, res.Scored); err != nil {
		return err
	}
	monitoring.Logf("run %s persisted to %s", res.RunID, cfg.DBPath)
	return nil
}
