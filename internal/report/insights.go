package report

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/frame"
)

// DestConsistency summarizes one arrival airport across months: how
// difficult its flights run, and how stable that difficulty is. A high
// consistency score means reliably difficult, not occasionally difficult.
type DestConsistency struct {
	ArrAirport   string
	Flights      int
	MeanFDS      float64
	PctDifficult float64
	MonthCount   int
	FDSCv        float64
	DiffCv       float64
	Consistency  float64
}

type destMonth struct {
	arr   string
	month string
}

// coefVar is the population coefficient of variation with a small epsilon
// to keep a zero mean from blowing up.
func coefVar(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.PopStdDev(xs, nil) / (stat.Mean(xs, nil) + 1e-6)
}

// DestinationConsistency aggregates scored flights per arrival airport and
// month, then summarizes each airport's month-to-month stability. Results
// are sorted by consistency score, then pct difficult, then volume.
func DestinationConsistency(flights []flightops.Flight) []DestConsistency {
	type monthAgg struct {
		flights int
		diff    int
		fdsSum  float64
	}
	months := map[destMonth]*monthAgg{}
	for i := range flights {
		fl := &flights[i]
		if fl.Key.ArrAirport == "" || fl.SchedDep.IsZero() {
			continue
		}
		k := destMonth{arr: fl.Key.ArrAirport, month: fl.SchedDep.Format("2006-01")}
		m := months[k]
		if m == nil {
			m = &monthAgg{}
			months[k] = m
		}
		m.flights++
		if fl.Difficult {
			m.diff++
		}
		m.fdsSum += fl.FDS
	}

	type destAgg struct {
		flights  int
		meanFDS  []float64
		pctDiff  []float64
		monthSet map[string]bool
	}
	dests := map[string]*destAgg{}
	for k, m := range months {
		d := dests[k.arr]
		if d == nil {
			d = &destAgg{monthSet: map[string]bool{}}
			dests[k.arr] = d
		}
		d.flights += m.flights
		d.meanFDS = append(d.meanFDS, m.fdsSum/float64(m.flights))
		d.pctDiff = append(d.pctDiff, float64(m.diff)/float64(m.flights))
		d.monthSet[k.month] = true
	}

	out := make([]DestConsistency, 0, len(dests))
	for arr, d := range dests {
		dc := DestConsistency{
			ArrAirport:   arr,
			Flights:      d.flights,
			MeanFDS:      stat.Mean(d.meanFDS, nil),
			PctDifficult: stat.Mean(d.pctDiff, nil),
			MonthCount:   len(d.monthSet),
			FDSCv:        coefVar(d.meanFDS),
			DiffCv:       coefVar(d.pctDiff),
		}
		diffCv := dc.DiffCv
		if math.IsNaN(diffCv) {
			diffCv = 0
		}
		if diffCv < 0 {
			diffCv = 0
		}
		if diffCv > 1 {
			diffCv = 1
		}
		pct := dc.PctDifficult
		if math.IsNaN(pct) {
			pct = 0
		}
		dc.Consistency = pct * (1 - diffCv)
		out = append(out, dc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Consistency != out[j].Consistency {
			return out[i].Consistency > out[j].Consistency
		}
		if out[i].PctDifficult != out[j].PctDifficult {
			return out[i].PctDifficult > out[j].PctDifficult
		}
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].ArrAirport < out[j].ArrAirport
	})
	return out
}

// WriteDestinationConsistency writes destination_consistency.csv.
func WriteDestinationConsistency(outDir string, dests []DestConsistency) error {
	header := []string{
		"arr_ap", "flights", "mean_fds", "pct_difficult", "mo_count",
		"fds_cv", "diff_cv", "consistency_score",
	}
	rows := make([][]string, 0, len(dests))
	for _, d := range dests {
		rows = append(rows, []string{
			d.ArrAirport, strconv.Itoa(d.Flights),
			floatCell(d.MeanFDS), floatCell(d.PctDifficult), strconv.Itoa(d.MonthCount),
			floatCell(d.FDSCv), floatCell(d.DiffCv), floatCell(d.Consistency),
		})
	}
	path := filepath.Join(outDir, "destination_consistency.csv")
	if err := frame.WriteCSV(path, header, rows); err != nil {
		return fmt.Errorf("write destination consistency: %w", err)
	}
	return nil
}

// DestDriver is one (destination, feature) correlation with the label.
type DestDriver struct {
	ArrAirport string
	Feature    string
	Spearman   float64
}

// driverFeatures are the candidate explanatory features for the driver
// tables, keyed by artifact column name.
var driverFeatures = []struct {
	name string
	get  func(*flightops.Features) float64
}{
	{"turn_slack", func(f *flightops.Features) float64 { return f.TurnSlack }},
	{"dep_delay_rate_roll28", func(f *flightops.Features) float64 { return f.DepDelayRateRoll28 }},
	{"arr_delay_rate_roll28", func(f *flightops.Features) float64 { return f.ArrDelayRateRoll28 }},
	{"route_delay_rate_roll28", func(f *flightops.Features) float64 { return f.RouteDelayRateRoll28 }},
	{"route_cxl_rate_roll28", func(f *flightops.Features) float64 { return f.RouteCxlRateRoll28 }},
	{"taxi_out_delta", func(f *flightops.Features) float64 { return f.TaxiOutDelta }},
	{"arrivals_same_hour", func(f *flightops.Features) float64 { return f.ArrivalsSameHour }},
	{"ssr_rate", func(f *flightops.Features) float64 { return f.SSRRate }},
	{"transfer_checked_ratio", func(f *flightops.Features) float64 { return f.TransferCheckedRatio }},
	{"special_bag_ratio", func(f *flightops.Features) float64 { return f.SpecialBagRatio }},
	{"is_peak_season", func(f *flightops.Features) float64 { return f.PeakSeason }},
	{"red_eye", func(f *flightops.Features) float64 { return f.RedEye }},
	{"bank_window", func(f *flightops.Features) float64 { return f.BankWindow }},
	{"dep_hub_flag", func(f *flightops.Features) float64 { return f.DepHubFlag }},
	{"arr_hub_flag", func(f *flightops.Features) float64 { return f.ArrHubFlag }},
	{"type_diff_rate", func(f *flightops.Features) float64 { return f.TypeDiffRate }},
	{"total_seats", func(f *flightops.Features) float64 { return f.TotalSeats }},
}

// DestinationDrivers computes, for each focus destination, the rank
// correlation between each candidate feature and the difficulty label.
// Pairs with too little data or no variance are skipped.
func DestinationDrivers(flights []flightops.Flight, focus []string) []DestDriver {
	byArr := map[string][]*flightops.Flight{}
	for i := range flights {
		byArr[flights[i].Key.ArrAirport] = append(byArr[flights[i].Key.ArrAirport], &flights[i])
	}

	var out []DestDriver
	for _, arr := range focus {
		sub := byArr[arr]
		for _, drv := range driverFeatures {
			var xs, ys []float64
			for _, fl := range sub {
				v := drv.get(&fl.Feat)
				if math.IsNaN(v) {
					continue
				}
				xs = append(xs, v)
				y := 0.0
				if fl.Difficult {
					y = 1
				}
				ys = append(ys, y)
			}
			rho := spearman(xs, ys)
			if math.IsNaN(rho) {
				continue
			}
			out = append(out, DestDriver{ArrAirport: arr, Feature: drv.name, Spearman: rho})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ArrAirport != out[j].ArrAirport {
			return out[i].ArrAirport < out[j].ArrAirport
		}
		return out[i].Spearman > out[j].Spearman
	})
	return out
}

// WriteDestinationDrivers writes destination_drivers.csv.
func WriteDestinationDrivers(outDir string, drivers []DestDriver) error {
	header := []string{"arr_ap", "feature", "spearman_with_difficult"}
	rows := make([][]string, 0, len(drivers))
	for _, d := range drivers {
		rows = append(rows, []string{d.ArrAirport, d.Feature, floatCell(d.Spearman)})
	}
	path := filepath.Join(outDir, "destination_drivers.csv")
	if err := frame.WriteCSV(path, header, rows); err != nil {
		return fmt.Errorf("write destination drivers: %w", err)
	}
	return nil
}

// spearman is the rank correlation of two aligned series. NaN when there
// are fewer than 3 pairs or either side has no variance.
func spearman(xs, ys []float64) float64 {
	if len(xs) < 3 || len(xs) != len(ys) {
		return math.NaN()
	}
	if !hasVariance(xs) || !hasVariance(ys) {
		return math.NaN()
	}
	return stat.Correlation(ranks(xs), ranks(ys), nil)
}

func hasVariance(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return true
		}
	}
	return false
}

// ranks returns average ranks (1-based, ties averaged).
func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })

	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && xs[idx[j]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1..j
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}

func floatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
