package flightops

import (
	"math"
	"sort"
	"time"

	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/schema"
)

// MergeAll normalizes the flight table, aggregates the passenger and bag
// tables, and left-joins both aggregates onto the flights by 4-part key.
// Flights with no matching records keep their row with NaN aggregate
// features; the flight table is authoritative for row count. Time and
// turnaround features are added afterwards.
//
// The operation is deterministic: identical inputs produce an identical
// table, and no input frame is mutated.
func MergeAll(flights, pnr, bags *frame.Frame) (*FlightTable, error) {
	nf, err := schema.Normalize(flights, "Flight Level", true)
	if err != nil {
		return nil, err
	}
	table := FromFrame(nf)

	pax, err := AggregatePassengers(pnr)
	if err != nil {
		return nil, err
	}
	bag, err := AggregateBags(bags)
	if err != nil {
		return nil, err
	}

	for i := range table.Flights {
		fl := &table.Flights[i]
		if agg, ok := pax[fl.Key]; ok {
			fl.Feat.PNRRows = agg.Rows
			fl.Feat.PaxProxy = agg.PaxProxy
			fl.Feat.Children = agg.Children
			fl.Feat.Infants = agg.Infants
			fl.Feat.SSRCount = agg.SSRCount
			fl.Feat.UMNR = agg.UMNR
			fl.Feat.SSRRate = agg.SSRRate
		}
		if agg, ok := bag[fl.Key]; ok {
			fl.Feat.TotalBags = agg.TotalBags
			fl.Feat.SpecialBags = agg.SpecialBags
			fl.Feat.SpecialBagRatio = agg.SpecialBagRatio
			fl.Feat.TransferBags = agg.TransferBags
			fl.Feat.CheckedBags = agg.CheckedBags
			fl.Feat.TransferCheckedRatio = agg.TransferCheckedRatio
		}
	}

	table.Flights = AddTimeFeatures(table.Flights)
	table.Flights = AddTurnFeatures(table.Flights)
	return table, nil
}

// AddTimeFeatures derives calendar parts for the scheduled departure and
// arrival timestamps, the red-eye and bank-window flags, the peak-season
// flag (the 4 highest-volume months observed across the whole dataset) and
// the route label. Missing timestamps yield missing parts, not a fault.
func AddTimeFeatures(flights []Flight) []Flight {
	out := cloneFlights(flights)

	monthVolume := make(map[int]int)
	for i := range out {
		fl := &out[i]
		if !fl.SchedDep.IsZero() {
			fl.Feat.DepHour = float64(fl.SchedDep.Hour())
			fl.Feat.DepDow = float64(pythonWeekday(fl.SchedDep))
			fl.Feat.DepMonth = float64(int(fl.SchedDep.Month()))
			monthVolume[int(fl.SchedDep.Month())]++
		}
		if !fl.SchedArr.IsZero() {
			fl.Feat.ArrHour = float64(fl.SchedArr.Hour())
			fl.Feat.ArrDow = float64(pythonWeekday(fl.SchedArr))
			fl.Feat.ArrMonth = float64(int(fl.SchedArr.Month()))
		}

		fl.Feat.RedEye = 0
		fl.Feat.BankWindow = 0
		if !fl.SchedDep.IsZero() {
			h := fl.SchedDep.Hour()
			if h >= 22 || h <= 5 {
				fl.Feat.RedEye = 1
			}
			fl.Feat.BankWindow = float64(bankWindow(h))
		}
		fl.RouteAB = fl.Key.DepAirport + RouteSeparator + fl.Key.ArrAirport
	}

	peak := topMonths(monthVolume, 4)
	for i := range out {
		fl := &out[i]
		fl.Feat.PeakSeason = 0
		if !fl.SchedDep.IsZero() && peak[int(fl.SchedDep.Month())] {
			fl.Feat.PeakSeason = 1
		}
	}
	return out
}

// bankWindow classifies a departure hour into the morning bank (1, hours
// 6-9), evening bank (2, hours 17-21), or neither (0).
func bankWindow(hour int) int {
	switch {
	case hour >= 6 && hour <= 9:
		return 1
	case hour >= 17 && hour <= 21:
		return 2
	default:
		return 0
	}
}

// pythonWeekday maps Go's Sunday-first weekday to Monday=0..Sunday=6, the
// convention the written artifacts use.
func pythonWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// topMonths returns the n months with the highest flight volume. Ties break
// toward the smaller month number so the statistic is deterministic.
func topMonths(volume map[int]int, n int) map[int]bool {
	type mv struct {
		month int
		count int
	}
	all := make([]mv, 0, len(volume))
	for m, c := range volume {
		all = append(all, mv{m, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].month < all[j].month
	})
	top := make(map[int]bool, n)
	for i := 0; i < n && i < len(all); i++ {
		top[all[i].month] = true
	}
	return top
}

// AddTurnFeatures computes the turnaround baseline and slack.
// std_turn_minutes is the median of actual ground minutes grouped by
// (aircraft type, departure airport, departure hour) over the whole dataset;
// turn_slack is planned minus std. Negative slack means the planned buffer
// is below the historical norm for the same context.
func AddTurnFeatures(flights []Flight) []Flight {
	out := cloneFlights(flights)

	type turnKey struct {
		aircraftType string
		depAirport   string
		depHour      int
	}
	groups := make(map[turnKey][]float64)
	for i := range out {
		fl := &out[i]
		if fl.SchedDep.IsZero() || math.IsNaN(fl.ActualGroundMin) {
			continue
		}
		k := turnKey{fl.AircraftType, fl.Key.DepAirport, fl.SchedDep.Hour()}
		groups[k] = append(groups[k], fl.ActualGroundMin)
	}

	medians := make(map[turnKey]float64, len(groups))
	for k, vals := range groups {
		medians[k] = median(vals)
	}

	for i := range out {
		fl := &out[i]
		fl.Feat.StdTurnMin = math.NaN()
		if !fl.SchedDep.IsZero() {
			k := turnKey{fl.AircraftType, fl.Key.DepAirport, fl.SchedDep.Hour()}
			if m, ok := medians[k]; ok {
				fl.Feat.StdTurnMin = m
			}
		}
		fl.Feat.TurnSlack = fl.Feat.PlannedTurnMin - fl.Feat.StdTurnMin
	}
	return out
}
