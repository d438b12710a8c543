package flightops

import (
	"math"
	"strings"

	"github.com/airside-data/difficulty.report/internal/frame"
	"github.com/airside-data/difficulty.report/internal/schema"
)

// Airport is one row of the static airport reference table.
type Airport struct {
	IATA    string
	Country string
}

// AirportsFromFrame reads the airport reference table: IATA code plus ISO
// country code, columns resolved loosely. Duplicate codes keep the first
// row.
func AirportsFromFrame(f *frame.Frame) (map[string]Airport, error) {
	codeCol, ok := schema.FindColumn(f, []string{`^airport[_ ]?iata[_ ]?code$`, `iata`, `^airport[_ ]?code$`})
	if !ok {
		return nil, &schema.ResolutionError{
			Table:     "Airports",
			Missing:   []string{"airport_iata_code"},
			Available: f.Columns(),
		}
	}
	countryCol, _ := schema.FindColumn(f, []string{`^iso[_ ]?country[_ ]?code$`, `country`})

	out := make(map[string]Airport, f.Len())
	for i := 0; i < f.Len(); i++ {
		code := strings.ToUpper(strings.TrimSpace(f.Value(i, codeCol)))
		if code == "" {
			continue
		}
		if _, exists := out[code]; exists {
			continue
		}
		ap := Airport{IATA: code}
		if countryCol != "" {
			ap.Country = strings.TrimSpace(f.Value(i, countryCol))
		}
		out[code] = ap
	}
	return out, nil
}

// HubQuantile is the departure-count percentile at or above which an
// airport counts as a hub.
const HubQuantile = 0.95

// EnrichAirports joins airport metadata for both ends of each flight and
// derives the international flag, the hub flags and the per-(aircraft type,
// month) difficulty rate. Flights must already be labeled, since the type
// rate averages the difficulty label.
//
// Hub membership is computed once from departure-side traffic only: an
// airport is a hub when its departure count reaches the HubQuantile
// percentile of all airports' departure counts. Both flags test membership
// in that single set. The type difficulty rate is a whole-dataset statistic
// (see DESIGN.md on non-causal features).
func EnrichAirports(t *FlightTable, airports map[string]Airport) *FlightTable {
	out := &FlightTable{
		Flights:            cloneFlights(t.Flights),
		DepDelayFromSource: t.DepDelayFromSource,
		ArrDelayFromSource: t.ArrDelayFromSource,
		HasTaxiOut:         t.HasTaxiOut,
	}
	flights := out.Flights

	depCounts := make(map[string]float64)
	for i := range flights {
		depCounts[flights[i].Key.DepAirport]++
	}
	counts := make([]float64, 0, len(depCounts))
	for _, c := range depCounts {
		counts = append(counts, c)
	}
	cutoff := quantile(counts, HubQuantile)
	hubs := make(map[string]bool)
	for ap, c := range depCounts {
		if c >= cutoff {
			hubs[ap] = true
		}
	}

	type typeMonth struct {
		aircraftType string
		month        int
	}
	diffSum := make(map[typeMonth]float64)
	diffCnt := make(map[typeMonth]float64)
	for i := range flights {
		fl := &flights[i]
		if fl.AircraftType == "" || fl.SchedDep.IsZero() {
			continue
		}
		k := typeMonth{fl.AircraftType, int(fl.SchedDep.Month())}
		diffCnt[k]++
		if fl.Difficult {
			diffSum[k]++
		}
	}

	for i := range flights {
		fl := &flights[i]

		fl.Feat.IntlFlag = math.NaN()
		dep, depOK := airports[fl.Key.DepAirport]
		arr, arrOK := airports[fl.Key.ArrAirport]
		if depOK && arrOK && dep.Country != "" && arr.Country != "" {
			fl.Feat.IntlFlag = 0
			if dep.Country != arr.Country {
				fl.Feat.IntlFlag = 1
			}
		}

		fl.Feat.DepHubFlag = 0
		if hubs[fl.Key.DepAirport] {
			fl.Feat.DepHubFlag = 1
		}
		fl.Feat.ArrHubFlag = 0
		if hubs[fl.Key.ArrAirport] {
			fl.Feat.ArrHubFlag = 1
		}

		fl.Feat.TypeDiffRate = math.NaN()
		if fl.AircraftType != "" && !fl.SchedDep.IsZero() {
			k := typeMonth{fl.AircraftType, int(fl.SchedDep.Month())}
			if diffCnt[k] > 0 {
				fl.Feat.TypeDiffRate = diffSum[k] / diffCnt[k]
			}
		}
	}
	return out
}
