// Package report turns scored flights into the operational deliverables:
// daily difficulty rankings, destination consistency and driver tables, the
// recommendations writeup, EDA summaries and charts.
package report

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/frame"
)

const depDateLayout = "2006-01-02"

// rankedFlight pairs a flight with its rank within its departure date.
type rankedFlight struct {
	depDate string
	rank    int
	fl      *flightops.Flight
}

// rankByDay orders flights by descending score within each departure date.
// Ties keep input order, so ranks are dense and unique per day.
func rankByDay(flights []flightops.Flight) []rankedFlight {
	out := make([]rankedFlight, 0, len(flights))
	for i := range flights {
		fl := &flights[i]
		if fl.SchedDep.IsZero() {
			continue
		}
		out = append(out, rankedFlight{depDate: fl.SchedDep.Format(depDateLayout), fl: fl})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].depDate != out[j].depDate {
			return out[i].depDate < out[j].depDate
		}
		return out[i].fl.FDS > out[j].fl.FDS
	})
	rank := 0
	prevDate := ""
	for i := range out {
		if out[i].depDate != prevDate {
			prevDate = out[i].depDate
			rank = 0
		}
		rank++
		out[i].rank = rank
	}
	return out
}

var rankingHeader = []string{
	"dep_date", "rank_in_day", "company_id", "flight_number",
	"scheduled_departure_airport_code", "scheduled_arrival_airport_code",
	"fds", "fds_bucket",
}

func rankingRow(r rankedFlight) []string {
	return []string{
		r.depDate, strconv.Itoa(r.rank),
		r.fl.Key.CompanyID, r.fl.Key.FlightNumber,
		r.fl.Key.DepAirport, r.fl.Key.ArrAirport,
		strconv.FormatFloat(r.fl.FDS, 'f', 4, 64), r.fl.FDSBucket,
	}
}

// WriteDailyRankings writes daily_rankings.csv, daily_rankings_top10.csv
// and daily_bucket_counts.csv under outDir.
func WriteDailyRankings(outDir string, flights []flightops.Flight) error {
	ranked := rankByDay(flights)

	all := make([][]string, 0, len(ranked))
	top := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		all = append(all, rankingRow(r))
		if r.rank <= 10 {
			top = append(top, rankingRow(r))
		}
	}
	if err := frame.WriteCSV(filepath.Join(outDir, "daily_rankings.csv"), rankingHeader, all); err != nil {
		return fmt.Errorf("write daily rankings: %w", err)
	}
	if err := frame.WriteCSV(filepath.Join(outDir, "daily_rankings_top10.csv"), rankingHeader, top); err != nil {
		return fmt.Errorf("write daily top10: %w", err)
	}

	type bucketCounts struct{ low, medium, high int }
	counts := map[string]*bucketCounts{}
	for _, r := range ranked {
		bc := counts[r.depDate]
		if bc == nil {
			bc = &bucketCounts{}
			counts[r.depDate] = bc
		}
		switch r.fl.FDSBucket {
		case "Low":
			bc.low++
		case "Medium":
			bc.medium++
		case "High":
			bc.high++
		}
	}
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		bc := counts[d]
		rows = append(rows, []string{
			d, strconv.Itoa(bc.low), strconv.Itoa(bc.medium), strconv.Itoa(bc.high),
		})
	}
	header := []string{"dep_date", "Low", "Medium", "High"}
	if err := frame.WriteCSV(filepath.Join(outDir, "daily_bucket_counts.csv"), header, rows); err != nil {
		return fmt.Errorf("write daily bucket counts: %w", err)
	}
	return nil
}

// DailyMeanFDS returns sorted departure dates with their mean score. Used by
// the overview chart.
func DailyMeanFDS(flights []flightops.Flight) (dates []string, means []float64) {
	sums := map[string]float64{}
	ns := map[string]int{}
	for i := range flights {
		if flights[i].SchedDep.IsZero() || math.IsNaN(flights[i].FDS) {
			continue
		}
		d := flights[i].SchedDep.Format(depDateLayout)
		sums[d] += flights[i].FDS
		ns[d]++
	}
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	means = make([]float64, len(dates))
	for i, d := range dates {
		means[i] = sums[d] / float64(ns[d])
	}
	return dates, means
}
