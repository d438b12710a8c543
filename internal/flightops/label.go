package flightops

import (
	"math"
	"time"
)

// Label derives departure and arrival delay minutes when the source table
// carried no delay columns, then sets the binary difficulty label:
// departure delay at or above thresholdMin (inclusive), or cancelled, or
// diverted. A missing delay never poisons the label; it counts as 0 inside
// the OR.
//
// The label is the supervised target for training and is immutable for the
// rest of the run.
func Label(t *FlightTable, thresholdMin float64) *FlightTable {
	out := &FlightTable{
		Flights:            cloneFlights(t.Flights),
		DepDelayFromSource: t.DepDelayFromSource,
		ArrDelayFromSource: t.ArrDelayFromSource,
		HasTaxiOut:         t.HasTaxiOut,
	}

	for i := range out.Flights {
		fl := &out.Flights[i]
		if !t.DepDelayFromSource {
			fl.DepDelayMin = minutesBetween(fl.SchedDep, fl.ActualDep)
		}
		if !t.ArrDelayFromSource {
			fl.ArrDelayMin = minutesBetween(fl.SchedArr, fl.ActualArr)
		}

		delay := fl.DepDelayMin
		if math.IsNaN(delay) {
			delay = 0
		}
		fl.Difficult = delay >= thresholdMin || fl.Cancelled || fl.Diverted
	}
	return out
}

// minutesBetween returns actual minus scheduled in minutes, NaN when either
// timestamp is missing.
func minutesBetween(scheduled, actual time.Time) float64 {
	if scheduled.IsZero() || actual.IsZero() {
		return math.NaN()
	}
	return actual.Sub(scheduled).Minutes()
}
