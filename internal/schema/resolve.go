// Package schema reconciles heterogeneous source tables onto the canonical
// flight-key columns used by every join in the pipeline.
//
// Each canonical field carries an ordered list of case-insensitive patterns:
// exact synonyms first, looser expressions after. Resolution is
// deterministic: patterns are tried in order, and within a pattern the
// source columns are scanned in header order.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/airside-data/difficulty.report/internal/frame"
)

// Canonical column names. Every stage downstream of normalization keys on
// these, never on source spellings.
const (
	ColCompanyID    = "company_id"
	ColFlightNumber = "flight_number"
	ColDepAirport   = "scheduled_departure_airport_code"
	ColArrAirport   = "scheduled_arrival_airport_code"
	ColDepDatetime  = "scheduled_departure_datetime_local"
	ColArrDatetime  = "scheduled_arrival_datetime_local"
	ColAircraftType = "aircraft_type"
)

// Key4 is the join key shared by all tables: passenger and bag records carry
// no departure timestamp, so multi-table joins use the 4-part key.
var Key4 = []string{ColCompanyID, ColFlightNumber, ColDepAirport, ColArrAirport}

// Key5 adds the scheduled departure timestamp; it is the full flight
// identity and is only required of the flight-level table.
var Key5 = append(append([]string(nil), Key4...), ColDepDatetime)

// ResolutionError reports canonical columns that could not be resolved from
// any known synonym. Callers must not proceed with a partially keyed table.
type ResolutionError struct {
	Table     string
	Missing   []string
	Available []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: missing required key columns %v; available columns: %s",
		e.Table, e.Missing, strings.Join(e.Available, ", "))
}

type fieldPatterns struct {
	canonical string
	// stationCol, when set, is accepted verbatim before pattern search.
	stationCol string
	patterns   []string
}

var keyFields = []fieldPatterns{
	{
		canonical: ColCompanyID,
		patterns:  []string{`^company[_ ]?id$`, `^airline[_ ]?id$`, `^carrier(_id)?$`},
	},
	{
		canonical: ColFlightNumber,
		patterns:  []string{`^flight[_ ]?number$`, `^flight(no)?$`, `^flt[_ ]?num(ber)?$`},
	},
	{
		canonical:  ColDepAirport,
		stationCol: "scheduled_departure_station_code",
		patterns:   []string{`(scheduled|sched|plan)?[_ ]?(dep|origin|org)[_ ]?(airport|station)?[_ ]?(iata|code)?$`},
	},
	{
		canonical:  ColArrAirport,
		stationCol: "scheduled_arrival_station_code",
		patterns:   []string{`(scheduled|sched|plan)?[_ ]?(arr|dest|destination)[_ ]?(airport|station)?[_ ]?(iata|code)?$`},
	},
}

var datetimeFields = []fieldPatterns{
	{
		canonical: ColDepDatetime,
		patterns:  []string{`scheduled.*dep.*(datetime|date[_ ]?time|time).*local`},
	},
	{
		canonical: ColArrDatetime,
		patterns:  []string{`scheduled.*arr.*(datetime|date[_ ]?time|time).*local`},
	},
}

var aircraftField = fieldPatterns{
	canonical: ColAircraftType,
	patterns:  []string{`^fleet[_ ]?type$`, `^aircraft$`},
}

// FindColumn returns the first source column whose lowercased name matches
// any of the patterns, tried in order. The second return is false when
// nothing matched.
func FindColumn(f *frame.Frame, patterns []string) (string, bool) {
	cols := f.Columns()
	for _, pat := range patterns {
		rgx := regexp.MustCompile(`(?i)` + pat)
		for _, c := range cols {
			if rgx.MatchString(strings.ToLower(c)) {
				return c, true
			}
		}
	}
	return "", false
}

// Normalize returns a copy of f exposing the canonical key columns, plus
// scheduled departure/arrival timestamps and aircraft type when
// requireDatetime is set. Key values are trimmed; airport codes are also
// upper-cased. The input frame is never mutated.
//
// When any required canonical column remains unresolved the returned error
// is a *ResolutionError naming the missing fields and the columns that were
// available.
func Normalize(f *frame.Frame, table string, requireDatetime bool) (*frame.Frame, error) {
	out := f.Clone()

	resolve := func(fp fieldPatterns) {
		if out.Has(fp.canonical) {
			return
		}
		if fp.stationCol != "" && out.Has(fp.stationCol) {
			out.SetColumn(fp.canonical, out.Column(fp.stationCol))
			return
		}
		if src, ok := FindColumn(out, fp.patterns); ok {
			out.SetColumn(fp.canonical, out.Column(src))
		}
	}

	for _, fp := range keyFields {
		resolve(fp)
	}
	if requireDatetime {
		for _, fp := range datetimeFields {
			resolve(fp)
		}
	}
	resolve(aircraftField)

	trim := func(col string, upper bool) {
		if !out.Has(col) {
			return
		}
		vals := out.Column(col)
		for i, v := range vals {
			v = strings.TrimSpace(v)
			if upper {
				v = strings.ToUpper(v)
			}
			vals[i] = v
		}
		out.SetColumn(col, vals)
	}
	trim(ColCompanyID, false)
	trim(ColFlightNumber, false)
	trim(ColDepAirport, true)
	trim(ColArrAirport, true)

	need := Key4
	if requireDatetime {
		need = Key5
	}
	var missing []string
	for _, col := range need {
		if !out.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ResolutionError{Table: table, Missing: missing, Available: f.Columns()}
	}
	return out, nil
}
