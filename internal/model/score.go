package model

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/frame"
)

// Severity bucket edges on the 0-100 score.
const (
	BucketLowMax    = 33.33
	BucketMediumMax = 66.66
)

// Bucket names.
const (
	BucketLow    = "Low"
	BucketMedium = "Medium"
	BucketHigh   = "High"
)

// BucketFor maps a score to its severity bucket. Edges are inclusive on the
// lower bucket.
func BucketFor(fds float64) string {
	switch {
	case fds <= BucketLowMax:
		return BucketLow
	case fds <= BucketMediumMax:
		return BucketMedium
	default:
		return BucketHigh
	}
}

// Score applies the model to every flight, setting FDS (probability × 100,
// clamped to [0,100]) and the severity bucket. A new slice is returned.
func Score(m *Model, flights []flightops.Flight) []flightops.Flight {
	out := append([]flightops.Flight(nil), flights...)
	for i := range out {
		vec := out[i].Feat.Vector()
		for j, v := range vec {
			if math.IsNaN(v) {
				vec[j] = 0
			}
		}
		fds := m.Proba(vec) * 100
		if fds < 0 {
			fds = 0
		}
		if fds > 100 {
			fds = 100
		}
		out[i].FDS = fds
		out[i].FDSBucket = BucketFor(fds)
	}
	return out
}

// WriteImportances writes feature_importance.csv: one row per feature with
// its gain importance, sorted descending. The constant fallback writes all
// zeros in feature order so readers can detect the degenerate case.
func WriteImportances(outDir string, m *Model) error {
	names := m.FeatureNames()
	imp := m.Importances()

	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	if !m.IsConstant() {
		sortByImportance(idx, imp)
	}

	rows := make([][]string, 0, len(names))
	for _, i := range idx {
		rows = append(rows, []string{names[i], formatFloat(imp[i])})
	}
	path := filepath.Join(outDir, "feature_importance.csv")
	if err := frame.WriteCSV(path, []string{"feature", "importance_gain"}, rows); err != nil {
		return fmt.Errorf("write feature importances: %w", err)
	}
	return nil
}

func sortByImportance(idx []int, imp []float64) {
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && imp[idx[j]] > imp[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteScores writes flight_scores.csv: identity columns, the score and
// bucket, the label and delay, then every feature column.
func WriteScores(outDir string, flights []flightops.Flight) error {
	header := []string{
		"company_id", "flight_number",
		"scheduled_departure_airport_code", "scheduled_arrival_airport_code",
		"scheduled_departure_datetime_local", "scheduled_arrival_datetime_local",
		"fds", "fds_bucket", "difficult", "actual_departure_delay_minutes", "route_ab",
	}
	header = append(header, flightops.FeatureNames...)

	rows := make([][]string, 0, len(flights))
	for i := range flights {
		fl := &flights[i]
		row := []string{
			fl.Key.CompanyID, fl.Key.FlightNumber,
			fl.Key.DepAirport, fl.Key.ArrAirport,
			formatTime(fl.SchedDep), formatTime(fl.SchedArr),
			strconv.FormatFloat(fl.FDS, 'f', 4, 64), fl.FDSBucket,
			boolFlag(fl.Difficult), formatFloat(fl.DepDelayMin), fl.RouteAB,
		}
		for _, v := range fl.Feat.Vector() {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	path := filepath.Join(outDir, "flight_scores.csv")
	if err := frame.WriteCSV(path, header, rows); err != nil {
		return fmt.Errorf("write flight scores: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
