package flightops

import (
	"math"
	"regexp"
	"strings"

	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/schema"
)

// PaxAggregate summarizes the passenger-record rows for one flight key.
type PaxAggregate struct {
	Rows     float64 // raw record count, used as a load proxy
	PaxProxy float64
	Children float64
	Infants  float64
	SSRCount float64
	UMNR     float64
	SSRRate  float64
}

// BagAggregate summarizes the bag rows for one flight key.
type BagAggregate struct {
	TotalBags            float64
	SpecialBags          float64
	SpecialBagRatio      float64
	TransferBags         float64
	CheckedBags          float64
	TransferCheckedRatio float64 // NaN when transfer/checked columns are absent
}

var (
	ssrPattern  = regexp.MustCompile(`(?i)(ssr|wheelchair|wch)`)
	umnrPattern = regexp.MustCompile(`(?i)(umnr|unaccompanied)`)
)

func firstMatching(f *frame.Frame, rgx *regexp.Regexp) string {
	for _, c := range f.Columns() {
		if rgx.MatchString(c) {
			return c
		}
	}
	return ""
}

func keyAt(f *frame.Frame, row int) FlightKey {
	return FlightKey{
		CompanyID:    f.Value(row, schema.ColCompanyID),
		FlightNumber: f.Value(row, schema.ColFlightNumber),
		DepAirport:   f.Value(row, schema.ColDepAirport),
		ArrAirport:   f.Value(row, schema.ColArrAirport),
	}
}

// AggregatePassengers collapses a raw passenger-record table to one
// aggregate per 4-part flight key. The input is normalized first; no
// timestamp is required since multiple records share a flight regardless of
// time-of-day field availability.
//
// Counts with no matching source column are zero-filled. SSR density is
// SSRCount/Rows, exactly 0 when Rows is 0.
func AggregatePassengers(raw *frame.Frame) (map[FlightKey]PaxAggregate, error) {
	f, err := schema.Normalize(raw, "PNR+Flight", false)
	if err != nil {
		return nil, err
	}

	paxCol := ""
	if f.Has("total_pax") {
		paxCol = "total_pax"
	}
	childCol := ""
	if f.Has("is_child") {
		childCol = "is_child"
	}
	infantCol := ""
	if f.Has("lap_child_count") {
		infantCol = "lap_child_count"
	}
	ssrCol := firstMatching(f, ssrPattern)
	umnrCol := firstMatching(f, umnrPattern)

	out := make(map[FlightKey]PaxAggregate)
	for i := 0; i < f.Len(); i++ {
		k := keyAt(f, i)
		agg := out[k]
		agg.Rows++
		if paxCol != "" {
			agg.PaxProxy += frame.FloatOrZero(f.Value(i, paxCol))
		} else {
			agg.PaxProxy++
		}
		if childCol != "" {
			agg.Children += frame.FloatOrZero(f.Value(i, childCol))
		}
		if infantCol != "" {
			agg.Infants += frame.FloatOrZero(f.Value(i, infantCol))
		}
		if ssrCol != "" {
			agg.SSRCount += frame.FloatOrZero(f.Value(i, ssrCol))
		}
		if umnrCol != "" {
			agg.UMNR += frame.FloatOrZero(f.Value(i, umnrCol))
		}
		out[k] = agg
	}

	for k, agg := range out {
		if agg.Rows > 0 {
			agg.SSRRate = agg.SSRCount / agg.Rows
		}
		out[k] = agg
	}
	return out, nil
}

// AggregateBags collapses a raw bag table to one aggregate per 4-part flight
// key. When no explicit bag_count column exists the per-row bag count falls
// back to the sum of all numeric non-key columns. The transfer/checked ratio
// is only computed when both a transfer-bag-like and a checked-bag-like
// column are discoverable; otherwise it stays NaN, distinguishing "no data"
// from a genuine zero.
func AggregateBags(raw *frame.Frame) (map[FlightKey]BagAggregate, error) {
	f, err := schema.Normalize(raw, "Bag", false)
	if err != nil {
		return nil, err
	}

	keyCols := make(map[string]bool, len(schema.Key4))
	for _, c := range schema.Key4 {
		keyCols[c] = true
	}

	var numericCols []string
	if !f.Has("bag_count") {
		for _, c := range f.Columns() {
			if !keyCols[c] && f.IsNumericColumn(c) {
				numericCols = append(numericCols, c)
			}
		}
	}

	transferCol, checkedCol := "", ""
	for _, c := range f.Columns() {
		lc := strings.ToLower(c)
		if transferCol == "" && strings.Contains(lc, "transfer") && strings.Contains(lc, "bag") {
			transferCol = c
		}
		if checkedCol == "" && strings.Contains(lc, "checked") && strings.Contains(lc, "bag") {
			checkedCol = c
		}
	}
	hasTransferChecked := transferCol != "" && checkedCol != ""

	out := make(map[FlightKey]BagAggregate)
	for i := 0; i < f.Len(); i++ {
		k := keyAt(f, i)
		agg, ok := out[k]
		if !ok {
			agg.TransferCheckedRatio = math.NaN()
		}
		if f.Has("bag_count") {
			agg.TotalBags += frame.FloatOrZero(f.Value(i, "bag_count"))
		} else {
			for _, c := range numericCols {
				agg.TotalBags += frame.FloatOrZero(f.Value(i, c))
			}
		}
		if f.Has("special_bag_flag") {
			agg.SpecialBags += frame.FloatOrZero(f.Value(i, "special_bag_flag"))
		}
		if hasTransferChecked {
			agg.TransferBags += frame.FloatOrZero(f.Value(i, transferCol))
			agg.CheckedBags += frame.FloatOrZero(f.Value(i, checkedCol))
		}
		out[k] = agg
	}

	for k, agg := range out {
		if agg.TotalBags > 0 {
			agg.SpecialBagRatio = agg.SpecialBags / agg.TotalBags
		}
		if hasTransferChecked {
			agg.TransferCheckedRatio = 0
			if agg.CheckedBags > 0 {
				agg.TransferCheckedRatio = agg.TransferBags / agg.CheckedBags
			}
		} else {
			agg.TransferBags = math.NaN()
			agg.CheckedBags = math.NaN()
		}
		out[k] = agg
	}
	return out, nil
}
