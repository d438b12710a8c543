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

// WriteEDA writes the exploratory summary CSVs: delay summary, tight-turn
// counts, bag ratio, passenger-load correlation and the SSR-by-load-bin
// table. Every file gets at least one row even on empty input.
func WriteEDA(outDir string, flights []flightops.Flight) error {
	if err := writeDelaySummary(outDir, flights); err != nil {
		return err
	}
	if err := writeTurnSlackCounts(outDir, flights); err != nil {
		return err
	}
	if err := writeBagRatio(outDir, flights); err != nil {
		return err
	}
	if err := writePaxCorr(outDir, flights); err != nil {
		return err
	}
	return writeSSRByLoad(outDir, flights)
}

func writeDelaySummary(outDir string, flights []flightops.Flight) error {
	var (
		sum     float64
		notNaN  int
		lateCnt int
	)
	for i := range flights {
		d := flights[i].DepDelayMin
		if math.IsNaN(d) {
			continue
		}
		sum += d
		notNaN++
		if d > 0 {
			lateCnt++
		}
	}
	avg, pctLate := math.NaN(), math.NaN()
	if notNaN > 0 {
		avg = sum / float64(notNaN)
		pctLate = float64(lateCnt) / float64(len(flights)) * 100
	}
	path := filepath.Join(outDir, "eda_delay_summary.csv")
	header := []string{"avg_dep_delay_min", "pct_departure_late"}
	if err := frame.WriteCSV(path, header, [][]string{{floatCell(avg), floatCell(pctLate)}}); err != nil {
		return fmt.Errorf("write delay summary: %w", err)
	}
	return nil
}

func writeTurnSlackCounts(outDir string, flights []flightops.Flight) error {
	lt0, le5 := 0, 0
	for i := range flights {
		ts := flights[i].Feat.TurnSlack
		if math.IsNaN(ts) {
			continue
		}
		if ts < 0 {
			lt0++
		}
		if ts <= 5 {
			le5++
		}
	}
	path := filepath.Join(outDir, "eda_turn_slack_counts.csv")
	header := []string{"turn_slack_lt_0", "turn_slack_le_5", "total_flights"}
	row := []string{strconv.Itoa(lt0), strconv.Itoa(le5), strconv.Itoa(len(flights))}
	if err := frame.WriteCSV(path, header, [][]string{row}); err != nil {
		return fmt.Errorf("write turn slack counts: %w", err)
	}
	return nil
}

// writeBagRatio averages transfer_checked_ratio, falling back to
// special_bag_ratio when the transfer ratio is entirely missing.
func writeBagRatio(outDir string, flights []flightops.Flight) error {
	mean := func(get func(*flightops.Features) float64) (float64, int) {
		sum, n := 0.0, 0
		for i := range flights {
			v := get(&flights[i].Feat)
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			return math.NaN(), 0
		}
		return sum / float64(n), n
	}
	avg, n := mean(func(f *flightops.Features) float64 { return f.TransferCheckedRatio })
	if n == 0 {
		avg, _ = mean(func(f *flightops.Features) float64 { return f.SpecialBagRatio })
	}
	path := filepath.Join(outDir, "eda_bag_ratio.csv")
	header := []string{"avg_transfer_to_checked_bag_ratio"}
	if err := frame.WriteCSV(path, header, [][]string{{floatCell(avg)}}); err != nil {
		return fmt.Errorf("write bag ratio: %w", err)
	}
	return nil
}

func writePaxCorr(outDir string, flights []flightops.Flight) error {
	var xs, ys []float64
	for i := range flights {
		v := flights[i].Feat.PNRRows
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, v)
		y := 0.0
		if flights[i].Difficult {
			y = 1
		}
		ys = append(ys, y)
	}
	corr := math.NaN()
	if len(xs) >= 2 && hasVariance(xs) && hasVariance(ys) {
		corr = stat.Correlation(xs, ys, nil)
	}
	path := filepath.Join(outDir, "eda_pax_corr.csv")
	header := []string{"corr_pnr_rows_vs_difficult"}
	if err := frame.WriteCSV(path, header, [][]string{{floatCell(corr)}}); err != nil {
		return fmt.Errorf("write pax correlation: %w", err)
	}
	return nil
}

// loadBin is one passenger-load quantile bin, (Lo, Hi].
type loadBin struct {
	Lo, Hi float64
}

func (b loadBin) String() string {
	return fmt.Sprintf("(%g, %g]", b.Lo, b.Hi)
}

// quantileBins builds up to q bins from the value distribution, dropping
// duplicate edges. The first bin's lower edge is stretched slightly so the
// minimum value falls inside it.
func quantileBins(vals []float64, q int) []loadBin {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	edges := make([]float64, 0, q+1)
	for i := 0; i <= q; i++ {
		e := stat.Quantile(float64(i)/float64(q), stat.LinInterp, sorted, nil)
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	if len(edges) < 2 {
		return nil
	}
	bins := make([]loadBin, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		lo := edges[i]
		if i == 0 {
			lo -= math.Max(math.Abs(lo)*1e-3, 1e-3)
		}
		bins = append(bins, loadBin{Lo: lo, Hi: edges[i+1]})
	}
	return bins
}

func binIndex(bins []loadBin, v float64) int {
	for i, b := range bins {
		if v > b.Lo && v <= b.Hi {
			return i
		}
	}
	return -1
}

// writeSSRByLoad bins flights into passenger-load quintiles and reports, per
// bin, the difficulty share, the SSR density and their correlation. SSR
// density is SSR count per passenger record, zero when load is zero or
// missing.
func writeSSRByLoad(outDir string, flights []flightops.Flight) error {
	header := []string{"load_bin", "mean_difficult", "mean_ssr_dense", "corr_ssr_dense_difficult"}
	path := filepath.Join(outDir, "eda_ssr_vs_delay_by_load.csv")

	type sample struct {
		load, dense, diff float64
	}
	var samples []sample
	loadSet := map[float64]bool{}
	for i := range flights {
		fl := &flights[i]
		load := fl.Feat.PNRRows
		if math.IsNaN(load) {
			continue
		}
		loadSet[load] = true
		dense := 0.0
		if load != 0 && !math.IsNaN(fl.Feat.SSRCount) {
			dense = fl.Feat.SSRCount / load
		}
		diff := 0.0
		if fl.Difficult {
			diff = 1
		}
		samples = append(samples, sample{load: load, dense: dense, diff: diff})
	}
	if len(samples) == 0 || len(loadSet) < 2 {
		if err := frame.WriteCSV(path, header, nil); err != nil {
			return fmt.Errorf("write ssr by load: %w", err)
		}
		return nil
	}

	loads := make([]float64, len(samples))
	for i, s := range samples {
		loads[i] = s.load
	}
	bins := quantileBins(loads, 5)
	grouped := make([][]sample, len(bins))
	for _, s := range samples {
		if i := binIndex(bins, s.load); i >= 0 {
			grouped[i] = append(grouped[i], s)
		}
	}

	rows := make([][]string, 0, len(bins))
	for i, b := range bins {
		g := grouped[i]
		if len(g) == 0 {
			continue
		}
		var denses, diffs []float64
		for _, s := range g {
			denses = append(denses, s.dense)
			diffs = append(diffs, s.diff)
		}
		corr := math.NaN()
		if len(g) >= 2 && hasVariance(denses) && hasVariance(diffs) {
			corr = stat.Correlation(denses, diffs, nil)
		}
		rows = append(rows, []string{
			b.String(),
			floatCell(stat.Mean(diffs, nil)),
			floatCell(stat.Mean(denses, nil)),
			floatCell(corr),
		})
	}
	if err := frame.WriteCSV(path, header, rows); err != nil {
		return fmt.Errorf("write ssr by load: %w", err)
	}
	return nil
}
