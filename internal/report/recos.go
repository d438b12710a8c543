package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recoActions maps each driver feature to the frontline action it suggests.
var recoActions = []struct{ feature, action string }{
	{"turn_slack", "Pad scheduled ground time on affected turns; pre-position ramp/cleaning; gate change to shorten taxi path."},
	{"dep_delay_rate_roll28", "Pre-departure buffers and extra pushback crews during peak; de-peaking banks by 5-10 min."},
	{"arr_delay_rate_roll28", "Tighten inbound connection protection; proactive reaccom for misconnect risk."},
	{"route_delay_rate_roll28", "Publish playbook for chronic routes (ATC flow times, taxi congestion); set dynamic crew show times."},
	{"route_cxl_rate_roll28", "Stage spare aircraft/crews; swap to higher reliability fleets."},
	{"taxi_out_delta", "Shift push windows; request alternate taxi routes; avoid far-end gates at peak."},
	{"arrivals_same_hour", "Add gate/ramp staffing in that hour; de-peak schedule; prioritize quick-turn gates."},
	{"ssr_rate", "Pre-board teams and wheelchairs staged; add aisle chairs; extend boarding window by 5 min."},
	{"transfer_checked_ratio", "Extra transfer-bag runners and belt capacity; SLA for cross-belt moves."},
	{"special_bag_ratio", "Dedicated oversize belt staffing; early callouts to baggage."},
	{"is_peak_season", "Seasonal staffing rosters; temporary schedule buffers."},
	{"red_eye", "Crew/cleaning overlap; quiet-hour taxi coordination."},
	{"dep_hub_flag", "Hub control-tower alerting and stand re-assignment rules."},
	{"type_diff_rate", "Targeted training/briefings for the aircraft type; ensure jet-bridge fit/spares."},
	{"total_seats", "Adjust boarding groups and door staffing for larger gauge."},
}

// WriteOpsRecos writes ops_recos.md: the global driver-to-action mapping and
// per-destination priorities for the ten most consistently difficult
// destinations.
func WriteOpsRecos(outDir string, dests []DestConsistency, drivers []DestDriver) error {
	var b strings.Builder
	b.WriteString("# Operational Recommendations\n")
	b.WriteString("These are mapped from statistical drivers to concrete actions.\n\n")
	b.WriteString("## Global actions by driver\n")
	for _, r := range recoActions {
		fmt.Fprintf(&b, "- **%s**: %s\n", r.feature, r.action)
	}

	b.WriteString("\n## Destination-specific priorities (top 10)\n")
	n := len(dests)
	if n > 10 {
		n = 10
	}
	for _, d := range dests[:n] {
		top := topDriversFor(d.ArrAirport, drivers, 3)
		if len(top) == 0 {
			fmt.Fprintf(&b, "- **%s**: no dominant driver identified\n", d.ArrAirport)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: focus on %s\n", d.ArrAirport, strings.Join(top, ", "))
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, "ops_recos.md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write ops recos: %w", err)
	}
	return nil
}

// topDriversFor returns the n strongest drivers for one destination. The
// driver slice is already sorted by airport then correlation.
func topDriversFor(arr string, drivers []DestDriver, n int) []string {
	var out []string
	for _, d := range drivers {
		if d.ArrAirport != arr {
			continue
		}
		out = append(out, d.Feature)
		if len(out) == n {
			break
		}
	}
	return out
}
