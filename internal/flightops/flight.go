// Package flightops holds the flight-level domain model and the feature
// pipeline: passenger and bag aggregation, joining, calendar and turnaround
// features, leakage-safe rolling risk rates, airport enrichment and the
// difficulty label.
//
// Missing numeric values are NaN throughout; missing timestamps are the zero
// time. Each exported stage returns a new slice so callers never observe a
// half-transformed table.
package flightops

import (
	"math"
	"sort"
	"time"

	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/schema"
)

// RouteSeparator joins departure and arrival codes into a route label.
const RouteSeparator = "→"

// FlightKey is the 4-part join key shared with passenger and bag records.
type FlightKey struct {
	CompanyID    string
	FlightNumber string
	DepAirport   string
	ArrAirport   string
}

// Flight is one scheduled flight with everything the pipeline derives for
// it. Full identity is Key plus SchedDep.
type Flight struct {
	Key          FlightKey
	SchedDep     time.Time
	SchedArr     time.Time
	ActualDep    time.Time
	ActualArr    time.Time
	AircraftType string
	RouteAB      string

	// Operational outcomes.
	DepDelayMin     float64
	ArrDelayMin     float64
	ActualGroundMin float64
	TaxiOutMin      float64
	Cancelled       bool
	Diverted        bool
	Difficult       bool

	Feat Features

	// Scoring results, set by the scorer.
	FDS       float64
	FDSBucket string
}

// Features are the model inputs. All fields are float64 so a missing value
// can stay NaN until vector assembly.
type Features struct {
	// Passenger-record aggregates.
	PNRRows  float64
	PaxProxy float64
	Children float64
	Infants  float64
	SSRCount float64
	UMNR     float64
	SSRRate  float64

	// Bag aggregates.
	TotalBags            float64
	SpecialBags          float64
	SpecialBagRatio      float64
	TransferBags         float64
	CheckedBags          float64
	TransferCheckedRatio float64

	// Calendar parts.
	DepHour  float64
	DepDow   float64
	DepMonth float64
	ArrHour  float64
	ArrDow   float64
	ArrMonth float64

	RedEye     float64
	BankWindow float64
	PeakSeason float64

	// Turnaround.
	PlannedTurnMin float64
	StdTurnMin     float64
	TurnSlack      float64

	// Airport enrichment.
	IntlFlag     float64
	DepHubFlag   float64
	ArrHubFlag   float64
	TypeDiffRate float64

	// Rolling operational risk.
	DepDelayRateRoll28   float64
	TaxiOutDelta         float64
	ArrDelayRateRoll28   float64
	RouteDelayRateRoll28 float64
	RouteCxlRateRoll28   float64
	ArrivalsSameHour     float64

	TotalSeats float64
}

// FeatureNames lists the model feature columns in vector order. The names
// match the written artifact headers.
var FeatureNames = []string{
	"pnr_rows", "pax_proxy", "children", "infants", "ssr_wch", "umnr", "ssr_rate",
	"total_bags", "special_bags", "special_bag_ratio", "transfer_bags", "checked_bags", "transfer_checked_ratio",
	"dep_hour", "dep_dow", "dep_month", "arr_hour", "arr_dow", "arr_month",
	"red_eye", "bank_window", "is_peak_season",
	"planned_turn_minutes", "std_turn_minutes", "turn_slack",
	"intl_flag", "dep_hub_flag", "arr_hub_flag", "type_diff_rate",
	"dep_delay_rate_roll28", "taxi_out_delta", "arr_delay_rate_roll28",
	"route_delay_rate_roll28", "route_cxl_rate_roll28", "arrivals_same_hour",
	"total_seats",
}

// Vector returns the feature values in FeatureNames order. NaN entries are
// preserved; the model layer decides how to treat them.
func (f *Features) Vector() []float64 {
	return []float64{
		f.PNRRows, f.PaxProxy, f.Children, f.Infants, f.SSRCount, f.UMNR, f.SSRRate,
		f.TotalBags, f.SpecialBags, f.SpecialBagRatio, f.TransferBags, f.CheckedBags, f.TransferCheckedRatio,
		f.DepHour, f.DepDow, f.DepMonth, f.ArrHour, f.ArrDow, f.ArrMonth,
		f.RedEye, f.BankWindow, f.PeakSeason,
		f.PlannedTurnMin, f.StdTurnMin, f.TurnSlack,
		f.IntlFlag, f.DepHubFlag, f.ArrHubFlag, f.TypeDiffRate,
		f.DepDelayRateRoll28, f.TaxiOutDelta, f.ArrDelayRateRoll28,
		f.RouteDelayRateRoll28, f.RouteCxlRateRoll28, f.ArrivalsSameHour,
		f.TotalSeats,
	}
}

func newFeatures() Features {
	nan := math.NaN()
	return Features{
		PNRRows: nan, PaxProxy: nan, Children: nan, Infants: nan,
		SSRCount: nan, UMNR: nan, SSRRate: nan,
		TotalBags: nan, SpecialBags: nan, SpecialBagRatio: nan,
		TransferBags: nan, CheckedBags: nan, TransferCheckedRatio: nan,
		DepHour: nan, DepDow: nan, DepMonth: nan,
		ArrHour: nan, ArrDow: nan, ArrMonth: nan,
		RedEye: nan, BankWindow: nan, PeakSeason: nan,
		PlannedTurnMin: nan, StdTurnMin: nan, TurnSlack: nan,
		IntlFlag: nan, DepHubFlag: nan, ArrHubFlag: nan, TypeDiffRate: nan,
		DepDelayRateRoll28: nan, TaxiOutDelta: nan, ArrDelayRateRoll28: nan,
		RouteDelayRateRoll28: nan, RouteCxlRateRoll28: nan, ArrivalsSameHour: nan,
		TotalSeats: nan,
	}
}

// FlightTable is the normalized flight-level table plus schema facts that
// later stages need: whether delay-minute columns came from the source (in
// which case the labeler must not re-derive them from timestamps).
type FlightTable struct {
	Flights            []Flight
	DepDelayFromSource bool
	ArrDelayFromSource bool
	HasTaxiOut         bool
}

// FromFrame converts a frame already normalized by schema.Normalize (with
// datetimes required) into typed flight records.
func FromFrame(f *frame.Frame) *FlightTable {
	t := &FlightTable{
		Flights:            make([]Flight, 0, f.Len()),
		DepDelayFromSource: f.Has("actual_departure_delay_minutes"),
		ArrDelayFromSource: f.Has("actual_arrival_delay_minutes"),
		HasTaxiOut:         f.Has("actual_taxi_out_minutes"),
	}

	plannedCol := ""
	for _, c := range []string{"planned_ground_time_minutes", "scheduled_ground_time_minutes"} {
		if f.Has(c) {
			plannedCol = c
			break
		}
	}

	for i := 0; i < f.Len(); i++ {
		fl := Flight{
			Key: FlightKey{
				CompanyID:    f.Value(i, schema.ColCompanyID),
				FlightNumber: f.Value(i, schema.ColFlightNumber),
				DepAirport:   f.Value(i, schema.ColDepAirport),
				ArrAirport:   f.Value(i, schema.ColArrAirport),
			},
			SchedDep:        frame.Time(f.Value(i, schema.ColDepDatetime)),
			SchedArr:        frame.Time(f.Value(i, schema.ColArrDatetime)),
			ActualDep:       frame.Time(f.Value(i, "actual_departure_datetime_local")),
			ActualArr:       frame.Time(f.Value(i, "actual_arrival_datetime_local")),
			AircraftType:    f.Value(i, schema.ColAircraftType),
			DepDelayMin:     math.NaN(),
			ArrDelayMin:     math.NaN(),
			ActualGroundMin: frame.Float(f.Value(i, "actual_ground_time_minutes")),
			TaxiOutMin:      frame.Float(f.Value(i, "actual_taxi_out_minutes")),
			Cancelled:       frame.FloatOrZero(f.Value(i, "cancellation_flag")) == 1,
			Diverted:        frame.FloatOrZero(f.Value(i, "diversion_flag")) == 1,
			Feat:            newFeatures(),
		}
		if t.DepDelayFromSource {
			fl.DepDelayMin = frame.Float(f.Value(i, "actual_departure_delay_minutes"))
		}
		if t.ArrDelayFromSource {
			fl.ArrDelayMin = frame.Float(f.Value(i, "actual_arrival_delay_minutes"))
		}
		if plannedCol != "" {
			fl.Feat.PlannedTurnMin = frame.Float(f.Value(i, plannedCol))
		}
		if f.Has("total_seats") {
			fl.Feat.TotalSeats = frame.Float(f.Value(i, "total_seats"))
		}
		t.Flights = append(t.Flights, fl)
	}
	return t
}

// DuplicateKeys returns the full composite keys (4-part key plus scheduled
// departure) that occur more than once. Duplicates indicate an upstream
// data-quality fault and are surfaced before any merge.
func DuplicateKeys(flights []Flight) []FlightKey {
	type fullKey struct {
		FlightKey
		dep int64
	}
	counts := make(map[fullKey]int, len(flights))
	for _, fl := range flights {
		counts[fullKey{fl.Key, fl.SchedDep.UnixNano()}]++
	}
	var dupes []FlightKey
	seen := make(map[fullKey]bool)
	for _, fl := range flights {
		k := fullKey{fl.Key, fl.SchedDep.UnixNano()}
		if counts[k] > 1 && !seen[k] {
			seen[k] = true
			dupes = append(dupes, fl.Key)
		}
	}
	sort.Slice(dupes, func(i, j int) bool {
		if dupes[i].CompanyID != dupes[j].CompanyID {
			return dupes[i].CompanyID < dupes[j].CompanyID
		}
		return dupes[i].FlightNumber < dupes[j].FlightNumber
	})
	return dupes
}

func cloneFlights(flights []Flight) []Flight {
	return append([]Flight(nil), flights...)
}
