package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airside-data/difficulty.report/internal/config"
	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/store"
)

// writeFixture creates a minimal but complete data directory: flight,
// passenger, bag and airport tables with enough rows to exercise labeling
// and scoring end to end.
func writeFixture(t *testing.T, dataDir string) {
	t.Helper()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var flights strings.Builder
	flights.WriteString("company_id,flight_number,scheduled_departure_station_code,scheduled_arrival_station_code," +
		"scheduled_departure_datetime_local,scheduled_arrival_datetime_local," +
		"actual_departure_datetime_local,actual_arrival_datetime_local," +
		"fleet_type,total_seats,scheduled_ground_time_minutes,actual_ground_time_minutes\n")
	for day := 1; day <= 4; day++ {
		// One on-time and one very late departure per day.
		fmt.Fprintf(&flights,
			"UA,10%d,ORD,DEN,2025-08-0%d 09:00:00,2025-08-0%d 11:00:00,2025-08-0%d 09:05:00,2025-08-0%d 11:05:00,B737-800,166,45,50\n",
			day, day, day, day, day)
		fmt.Fprintf(&flights,
			"UA,20%d,ORD,SFO,2025-08-0%d 15:00:00,2025-08-0%d 17:30:00,2025-08-0%d 16:10:00,2025-08-0%d 18:40:00,B737-800,166,45,40\n",
			day, day, day, day, day)
	}
	mustWrite(t, filepath.Join(dataDir, "Flight Level Data.csv"), flights.String())

	var pnr strings.Builder
	pnr.WriteString("company_id,flight_number,scheduled_departure_station_code,scheduled_arrival_station_code," +
		"total_pax,lap_child_count,basic_economy_pax\n")
	for day := 1; day <= 4; day++ {
		fmt.Fprintf(&pnr, "UA,10%d,ORD,DEN,120,2,30\n", day)
		fmt.Fprintf(&pnr, "UA,20%d,ORD,SFO,150,1,40\n", day)
	}
	mustWrite(t, filepath.Join(dataDir, "PNR Flight Level Data.csv"), pnr.String())

	var bags strings.Builder
	bags.WriteString("company_id,flight_number,scheduled_departure_station_code,scheduled_arrival_station_code,bag_count\n")
	for day := 1; day <= 4; day++ {
		fmt.Fprintf(&bags, "UA,10%d,ORD,DEN,80\n", day)
		fmt.Fprintf(&bags, "UA,20%d,ORD,SFO,95\n", day)
	}
	mustWrite(t, filepath.Join(dataDir, "Bag Level Data.csv"), bags.String())

	mustWrite(t, filepath.Join(dataDir, "Airports Data.csv"),
		"airport_iata_code,iso_country_code\nORD,US\nDEN,US\nSFO,US\n")
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutDir = filepath.Join(root, "outputs")
	cfg.FigDir = filepath.Join(root, "figures")
	cfg.DBPath = filepath.Join(root, "runs.db")
	cfg.WriteCharts = false
	writeFixture(t, cfg.DataDir)
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	res, err := Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FlightCount != 8 {
		t.Fatalf("scored %d flights, want 8", res.FlightCount)
	}
	// The 200-series departs 70 minutes late every day.
	if res.DifficultCount != 4 {
		t.Fatalf("difficult count = %d, want 4", res.DifficultCount)
	}
	// No trainer wired, so the constant-prior fallback scores.
	if res.ModelKind != store.ModelKindConstant {
		t.Fatalf("model kind = %s, want %s", res.ModelKind, store.ModelKindConstant)
	}

	for _, name := range []string{
		"flight_scores.csv", "feature_importance.csv",
		"daily_rankings.csv", "daily_rankings_top10.csv", "daily_bucket_counts.csv",
		"destination_consistency.csv", "destination_drivers.csv", "ops_recos.md",
		"eda_delay_summary.csv", "eda_turn_slack_counts.csv", "eda_bag_ratio.csv",
		"eda_pax_corr.csv", "eda_ssr_vs_delay_by_load.csv",
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	scores, err := frame.ReadCSV(filepath.Join(cfg.OutDir, "flight_scores.csv"))
	if err != nil {
		t.Fatalf("read scores: %v", err)
	}
	if scores.Len() != 8 {
		t.Fatalf("flight_scores rows = %d, want 8", scores.Len())
	}
	// Prior is 4/8, so every row scores 50 and lands in Medium.
	if got := scores.Value(0, "fds"); got != "50.0000" {
		t.Fatalf("fds = %q, want 50.0000", got)
	}
	if got := scores.Value(0, "fds_bucket"); got != "Medium" {
		t.Fatalf("fds_bucket = %q, want Medium", got)
	}
}

func TestRunPersistsRun(t *testing.T) {
	cfg := testConfig(t)

	res, err := Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Fatal("expected a run id when persistence is enabled")
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID {
		t.Fatalf("runs = %+v, want one run %s", runs, res.RunID)
	}
	if runs[0].ModelKind != store.ModelKindConstant || !runs[0].ConstantProb.Valid {
		t.Fatalf("persisted model fields = %+v", runs[0])
	}
	counts, err := s.BucketCounts(res.RunID)
	if err != nil {
		t.Fatalf("BucketCounts: %v", err)
	}
	if counts["Medium"] != 8 {
		t.Fatalf("bucket counts = %v, want 8 Medium", counts)
	}
}

func TestRunWithoutAirportTable(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.DataDir, "Airports Data.csv")); err != nil {
		t.Fatalf("remove airports: %v", err)
	}
	cfg.DBPath = ""

	res, err := Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run without airports: %v", err)
	}
	if res.FlightCount != 8 {
		t.Fatalf("scored %d flights, want 8", res.FlightCount)
	}
	if res.RunID != "" {
		t.Fatal("no run id expected when persistence is disabled")
	}
}

func TestRunMissingFlightTable(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.DataDir, "Flight Level Data.csv")); err != nil {
		t.Fatalf("remove flights: %v", err)
	}
	if _, err := Run(cfg, nil); err == nil {
		t.Fatal("expected error when flight table is missing")
	}
}
