package flightops

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Rolling-window sizes in daily buckets. Windows cover strictly preceding
// days only: a flight's same-day outcomes never feed its own rate, so the
// rates stay usable as pre-departure signals.
const (
	rollWindow  = 28
	rollMinDays = 7

	taxiShortWindow  = 7
	taxiShortMinDays = 3
	taxiLongWindow   = 90
	taxiLongMinDays  = 30
)

type dayBucket struct {
	day     time.Time
	count   float64
	diff    float64
	cxl     float64
	taxiSum float64
	taxiN   float64
}

type dayRates struct {
	diffRate  float64
	cxlRate   float64
	taxiDelta float64
}

type bucketKey struct {
	group string
	day   int64
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// rollRates buckets flights by (group key, calendar date of scheduled
// departure), sorts each group's buckets chronologically and computes
// trailing rates over the preceding buckets. A day with fewer than
// rollMinDays of history gets NaN, never zero.
//
// groupOf returns the grouping key for a flight and false when the flight
// cannot be bucketed (missing timestamp or grouping field).
func rollRates(flights []Flight, groupOf func(*Flight) (string, bool), withTaxi bool) map[bucketKey]dayRates {
	byBucket := make(map[bucketKey]*dayBucket)
	for i := range flights {
		fl := &flights[i]
		if fl.SchedDep.IsZero() {
			continue
		}
		g, ok := groupOf(fl)
		if !ok {
			continue
		}
		day := dateOf(fl.SchedDep)
		k := bucketKey{g, day.Unix()}
		b := byBucket[k]
		if b == nil {
			b = &dayBucket{day: day}
			byBucket[k] = b
		}
		b.count++
		if fl.Difficult {
			b.diff++
		}
		if fl.Cancelled {
			b.cxl++
		}
		if withTaxi && !math.IsNaN(fl.TaxiOutMin) {
			b.taxiSum += fl.TaxiOutMin
			b.taxiN++
		}
	}

	byGroup := make(map[string][]*dayBucket)
	for k, b := range byBucket {
		byGroup[k.group] = append(byGroup[k.group], b)
	}

	out := make(map[bucketKey]dayRates, len(byBucket))
	for g, series := range byGroup {
		sort.Slice(series, func(i, j int) bool { return series[i].day.Before(series[j].day) })

		counts := make([]float64, len(series))
		diffs := make([]float64, len(series))
		cxls := make([]float64, len(series))
		taxiAvgs := make([]float64, len(series))
		for i, b := range series {
			counts[i] = b.count
			diffs[i] = b.diff
			cxls[i] = b.cxl
			taxiAvgs[i] = math.NaN()
			if b.taxiN > 0 {
				taxiAvgs[i] = b.taxiSum / b.taxiN
			}
		}

		for i, b := range series {
			r := dayRates{diffRate: math.NaN(), cxlRate: math.NaN(), taxiDelta: math.NaN()}

			lo := i - rollWindow
			if lo < 0 {
				lo = 0
			}
			if i-lo >= rollMinDays {
				num := sum(diffs[lo:i])
				den := sum(counts[lo:i])
				if den > 0 {
					r.diffRate = num / den
					r.cxlRate = sum(cxls[lo:i]) / den
				}
			}

			if withTaxi {
				short := trailingMean(taxiAvgs, i, taxiShortWindow, taxiShortMinDays)
				long := trailingMedian(taxiAvgs, i, taxiLongWindow, taxiLongMinDays)
				r.taxiDelta = short - long
			}

			out[bucketKey{g, b.day.Unix()}] = r
		}
	}
	return out
}

func sum(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s
}

// trailingMean averages the up-to-window strictly prior entries ending at
// index i (exclusive), NaN when fewer than minPeriods non-NaN entries fall
// in the window.
func trailingMean(vals []float64, i, window, minPeriods int) float64 {
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	clean := dropNaN(vals[lo:i])
	if len(clean) < minPeriods {
		return math.NaN()
	}
	return mean(clean)
}

// trailingMedian is trailingMean's median counterpart.
func trailingMedian(vals []float64, i, window, minPeriods int) float64 {
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	clean := dropNaN(vals[lo:i])
	if len(clean) < minPeriods {
		return math.NaN()
	}
	return median(clean)
}

// AddRollingRisk computes the trailing difficulty rates at departure
// airport-hour, arrival airport-hour and route granularity, the taxi-out
// delta (recent congestion versus the long-run norm, departure airport-hour
// only), and the arrivals-same-hour count. Flights must already be labeled.
func AddRollingRisk(t *FlightTable) *FlightTable {
	out := &FlightTable{
		Flights:            cloneFlights(t.Flights),
		DepDelayFromSource: t.DepDelayFromSource,
		ArrDelayFromSource: t.ArrDelayFromSource,
		HasTaxiOut:         t.HasTaxiOut,
	}
	flights := out.Flights

	depKey := func(fl *Flight) (string, bool) {
		return fmt.Sprintf("%s|%02d", fl.Key.DepAirport, fl.SchedDep.Hour()), true
	}
	arrKey := func(fl *Flight) (string, bool) {
		if fl.SchedArr.IsZero() {
			return "", false
		}
		return fmt.Sprintf("%s|%02d", fl.Key.ArrAirport, fl.SchedArr.Hour()), true
	}
	routeKey := func(fl *Flight) (string, bool) {
		return fl.Key.DepAirport + "|" + fl.Key.ArrAirport, true
	}

	depRates := rollRates(flights, depKey, t.HasTaxiOut)
	arrRates := rollRates(flights, arrKey, false)
	routeRates := rollRates(flights, routeKey, false)

	for i := range flights {
		fl := &flights[i]
		fl.Feat.DepDelayRateRoll28 = math.NaN()
		fl.Feat.TaxiOutDelta = math.NaN()
		fl.Feat.ArrDelayRateRoll28 = math.NaN()
		fl.Feat.RouteDelayRateRoll28 = math.NaN()
		fl.Feat.RouteCxlRateRoll28 = math.NaN()
		if fl.SchedDep.IsZero() {
			continue
		}
		day := dateOf(fl.SchedDep).Unix()

		if g, ok := depKey(fl); ok {
			if r, ok := depRates[bucketKey{g, day}]; ok {
				fl.Feat.DepDelayRateRoll28 = r.diffRate
				fl.Feat.TaxiOutDelta = r.taxiDelta
			}
		}
		if g, ok := arrKey(fl); ok {
			if r, ok := arrRates[bucketKey{g, day}]; ok {
				fl.Feat.ArrDelayRateRoll28 = r.diffRate
			}
		}
		if g, ok := routeKey(fl); ok {
			if r, ok := routeRates[bucketKey{g, day}]; ok {
				fl.Feat.RouteDelayRateRoll28 = r.diffRate
				fl.Feat.RouteCxlRateRoll28 = r.cxlRate
			}
		}
	}

	addArrivalsSameHour(flights)
	return out
}

// addArrivalsSameHour counts scheduled arrivals per (airport, clock hour)
// and joins the count onto each flight by its departure airport and
// departure hour, a measure of ramp and gate pressure at the origin while
// the flight is being worked. Flights with no match get 0.
func addArrivalsSameHour(flights []Flight) {
	type hourKey struct {
		airport string
		hour    int64
	}
	counts := make(map[hourKey]float64)
	for i := range flights {
		fl := &flights[i]
		if fl.SchedArr.IsZero() {
			continue
		}
		counts[hourKey{fl.Key.ArrAirport, fl.SchedArr.Truncate(time.Hour).Unix()}]++
	}
	for i := range flights {
		fl := &flights[i]
		fl.Feat.ArrivalsSameHour = 0
		if fl.SchedDep.IsZero() {
			continue
		}
		fl.Feat.ArrivalsSameHour = counts[hourKey{fl.Key.DepAirport, fl.SchedDep.Truncate(time.Hour).Unix()}]
	}
}
