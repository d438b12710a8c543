package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/frame"
)

func mkScored(day int, fds float64, bucket, arr string, difficult bool) flightops.Flight {
	return flightops.Flight{
		Key: flightops.FlightKey{
			CompanyID:    "UA",
			FlightNumber: "100",
			DepAirport:   "ORD",
			ArrAirport:   arr,
		},
		SchedDep:  time.Date(2025, 8, day, 9, 0, 0, 0, time.UTC),
		FDS:       fds,
		FDSBucket: bucket,
		Difficult: difficult,
	}
}

func TestRankByDay(t *testing.T) {
	flights := []flightops.Flight{
		mkScored(1, 20, "Low", "DEN", false),
		mkScored(1, 80, "High", "DEN", true),
		mkScored(1, 50, "Medium", "SFO", false),
		mkScored(2, 10, "Low", "DEN", false),
	}
	ranked := rankByDay(flights)
	if len(ranked) != 4 {
		t.Fatalf("ranked %d flights, want 4", len(ranked))
	}
	if ranked[0].fl.FDS != 80 || ranked[0].rank != 1 {
		t.Fatalf("top of day 1 = fds %v rank %d, want 80 rank 1", ranked[0].fl.FDS, ranked[0].rank)
	}
	if ranked[2].fl.FDS != 20 || ranked[2].rank != 3 {
		t.Fatalf("bottom of day 1 = fds %v rank %d, want 20 rank 3", ranked[2].fl.FDS, ranked[2].rank)
	}
	if ranked[3].depDate != "2025-08-02" || ranked[3].rank != 1 {
		t.Fatalf("day 2 rank restarts: got date %s rank %d", ranked[3].depDate, ranked[3].rank)
	}
}

func TestWriteDailyRankings(t *testing.T) {
	dir := t.TempDir()
	flights := []flightops.Flight{
		mkScored(1, 20, "Low", "DEN", false),
		mkScored(1, 80, "High", "DEN", true),
		mkScored(2, 50, "Medium", "SFO", false),
	}
	if err := WriteDailyRankings(dir, flights); err != nil {
		t.Fatalf("WriteDailyRankings: %v", err)
	}

	f, err := frame.ReadCSV(filepath.Join(dir, "daily_rankings.csv"))
	if err != nil {
		t.Fatalf("read rankings: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("rankings rows = %d, want 3", f.Len())
	}
	if got := f.Value(0, "fds"); got != "80.0000" {
		t.Fatalf("first ranked fds = %q, want 80.0000", got)
	}

	bc, err := frame.ReadCSV(filepath.Join(dir, "daily_bucket_counts.csv"))
	if err != nil {
		t.Fatalf("read bucket counts: %v", err)
	}
	if bc.Len() != 2 {
		t.Fatalf("bucket count rows = %d, want 2", bc.Len())
	}
	if bc.Value(0, "High") != "1" || bc.Value(0, "Low") != "1" || bc.Value(0, "Medium") != "0" {
		t.Fatalf("day 1 counts = L%s M%s H%s", bc.Value(0, "Low"), bc.Value(0, "Medium"), bc.Value(0, "High"))
	}
}

func TestDestinationConsistency(t *testing.T) {
	var flights []flightops.Flight
	// DEN: difficult in both months, stable. SFO: difficult only once.
	for day := 1; day <= 2; day++ {
		flights = append(flights,
			mkScored(day, 80, "High", "DEN", true),
			mkScored(day, 70, "High", "DEN", true),
		)
	}
	flights = append(flights,
		mkScored(1, 90, "High", "SFO", true),
		mkScored(1, 10, "Low", "SFO", false),
		mkScored(2, 10, "Low", "SFO", false),
	)
	// Spread the two DEN days into two months.
	flights[2].SchedDep = flights[2].SchedDep.AddDate(0, 1, 0)
	flights[3].SchedDep = flights[3].SchedDep.AddDate(0, 1, 0)
	flights[6].SchedDep = flights[6].SchedDep.AddDate(0, 1, 0)

	dests := DestinationConsistency(flights)
	if len(dests) != 2 {
		t.Fatalf("got %d destinations, want 2", len(dests))
	}
	if dests[0].ArrAirport != "DEN" {
		t.Fatalf("top destination = %s, want DEN", dests[0].ArrAirport)
	}
	den := dests[0]
	if den.Flights != 4 || den.MonthCount != 2 {
		t.Fatalf("DEN flights=%d months=%d, want 4 and 2", den.Flights, den.MonthCount)
	}
	if den.PctDifficult != 1 {
		t.Fatalf("DEN pct difficult = %v, want 1", den.PctDifficult)
	}
	// Identical months, so zero variation and full consistency.
	if den.Consistency != 1 {
		t.Fatalf("DEN consistency = %v, want 1", den.Consistency)
	}
	sfo := dests[1]
	if sfo.Consistency >= den.Consistency {
		t.Fatalf("SFO consistency %v should trail DEN %v", sfo.Consistency, den.Consistency)
	}
}

func TestSpearman(t *testing.T) {
	// Monotone increasing pairs give perfect rank correlation.
	xs := []float64{1, 2, 3, 4}
	ys := []float64{10, 20, 30, 40}
	if got := spearman(xs, ys); math.Abs(got-1) > 1e-12 {
		t.Fatalf("spearman = %v, want 1", got)
	}
	// Reversed gives -1.
	if got := spearman(xs, []float64{4, 3, 2, 1}); math.Abs(got+1) > 1e-12 {
		t.Fatalf("spearman reversed = %v, want -1", got)
	}
	// Constant series has no rank signal.
	if got := spearman(xs, []float64{5, 5, 5, 5}); !math.IsNaN(got) {
		t.Fatalf("spearman constant = %v, want NaN", got)
	}
	// Too few points.
	if got := spearman([]float64{1, 2}, []float64{1, 2}); !math.IsNaN(got) {
		t.Fatalf("spearman short = %v, want NaN", got)
	}
}

func TestRanksTies(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", got, want)
		}
	}
}

func TestDestinationDrivers(t *testing.T) {
	var flights []flightops.Flight
	for i := 0; i < 6; i++ {
		fl := mkScored(i+1, 50, "Medium", "DEN", i >= 3)
		fl.Feat = flightops.Features{}
		fl.Feat.TurnSlack = float64(-i) // shrinking slack tracks difficulty
		flights = append(flights, fl)
	}
	drivers := DestinationDrivers(flights, []string{"DEN"})
	var found *DestDriver
	for i := range drivers {
		if drivers[i].Feature == "turn_slack" {
			found = &drivers[i]
		}
	}
	if found == nil {
		t.Fatal("turn_slack driver missing")
	}
	if found.Spearman >= 0 {
		t.Fatalf("turn_slack spearman = %v, want negative", found.Spearman)
	}
}

func TestWriteOpsRecos(t *testing.T) {
	dir := t.TempDir()
	dests := []DestConsistency{{ArrAirport: "DEN"}, {ArrAirport: "SFO"}}
	drivers := []DestDriver{
		{ArrAirport: "DEN", Feature: "turn_slack", Spearman: 0.9},
		{ArrAirport: "DEN", Feature: "ssr_rate", Spearman: 0.5},
	}
	if err := WriteOpsRecos(dir, dests, drivers); err != nil {
		t.Fatalf("WriteOpsRecos: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "ops_recos.md"))
	if err != nil {
		t.Fatalf("read recos: %v", err)
	}
	text := string(b)
	if !strings.Contains(text, "**DEN**: focus on turn_slack, ssr_rate") {
		t.Fatalf("missing DEN priorities in:\n%s", text)
	}
	if !strings.Contains(text, "**SFO**: no dominant driver identified") {
		t.Fatalf("missing SFO fallback in:\n%s", text)
	}
}

func TestWriteEDA(t *testing.T) {
	dir := t.TempDir()
	var flights []flightops.Flight
	for i := 0; i < 10; i++ {
		fl := mkScored(1, 50, "Medium", "DEN", i%2 == 0)
		fl.DepDelayMin = float64(i*10 - 20) // -20 .. 70
		fl.Feat.PNRRows = float64(100 + i)
		fl.Feat.SSRCount = float64(i)
		fl.Feat.TurnSlack = float64(i - 5)
		fl.Feat.TransferCheckedRatio = 0.5
		flights = append(flights, fl)
	}
	if err := WriteEDA(dir, flights); err != nil {
		t.Fatalf("WriteEDA: %v", err)
	}

	for _, name := range []string{
		"eda_delay_summary.csv", "eda_turn_slack_counts.csv",
		"eda_bag_ratio.csv", "eda_pax_corr.csv", "eda_ssr_vs_delay_by_load.csv",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	ts, err := frame.ReadCSV(filepath.Join(dir, "eda_turn_slack_counts.csv"))
	if err != nil {
		t.Fatalf("read turn slack counts: %v", err)
	}
	if ts.Value(0, "turn_slack_lt_0") != "5" {
		t.Fatalf("turn_slack_lt_0 = %q, want 5", ts.Value(0, "turn_slack_lt_0"))
	}
	if ts.Value(0, "total_flights") != "10" {
		t.Fatalf("total_flights = %q, want 10", ts.Value(0, "total_flights"))
	}

	bag, err := frame.ReadCSV(filepath.Join(dir, "eda_bag_ratio.csv"))
	if err != nil {
		t.Fatalf("read bag ratio: %v", err)
	}
	if got := frame.Float(bag.Value(0, "avg_transfer_to_checked_bag_ratio")); got != 0.5 {
		t.Fatalf("avg bag ratio = %v, want 0.5", got)
	}
}

func TestQuantileBins(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := quantileBins(vals, 5)
	if len(bins) != 5 {
		t.Fatalf("got %d bins, want 5", len(bins))
	}
	if binIndex(bins, 1) != 0 {
		t.Fatalf("minimum value should land in the first bin, got %d", binIndex(bins, 1))
	}
	if binIndex(bins, 10) != 4 {
		t.Fatalf("maximum value should land in the last bin, got %d", binIndex(bins, 10))
	}
	// Degenerate distribution collapses to no bins.
	if got := quantileBins([]float64{3, 3, 3}, 5); got != nil {
		t.Fatalf("constant values should produce no bins, got %v", got)
	}
}

func TestDailyMeanFDS(t *testing.T) {
	flights := []flightops.Flight{
		mkScored(1, 20, "Low", "DEN", false),
		mkScored(1, 40, "Medium", "DEN", false),
		mkScored(2, 90, "High", "DEN", true),
	}
	dates, means := DailyMeanFDS(flights)
	if len(dates) != 2 || dates[0] != "2025-08-01" {
		t.Fatalf("dates = %v", dates)
	}
	if means[0] != 30 || means[1] != 90 {
		t.Fatalf("means = %v, want [30 90]", means)
	}
}
