package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/monitoring"
)

// WriteCharts renders the static figures into figDir: the turn-slack
// histogram and the score distribution. Charts with no finite data are
// skipped with a log line rather than failing the run.
func WriteCharts(figDir string, flights []flightops.Flight) error {
	if err := os.MkdirAll(figDir, 0755); err != nil {
		return fmt.Errorf("create figure dir: %w", err)
	}

	var slack, fds plotter.Values
	for i := range flights {
		if v := flights[i].Feat.TurnSlack; !math.IsNaN(v) {
			slack = append(slack, v)
		}
		if v := flights[i].FDS; !math.IsNaN(v) {
			fds = append(fds, v)
		}
	}

	if err := histogramPNG(filepath.Join(figDir, "turn_slack_hist.png"),
		"Turn slack (planned - typical minutes)", "Minutes", slack); err != nil {
		return err
	}
	return histogramPNG(filepath.Join(figDir, "fds_hist.png"),
		"Flight Difficulty Score distribution", "FDS", fds)
}

func histogramPNG(path, title, xlabel string, vals plotter.Values) error {
	if len(vals) == 0 {
		monitoring.Logf("no data for %s; skipping", filepath.Base(path))
		return nil
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Flights"

	bins := 40
	if len(vals) < bins {
		bins = len(vals)
	}
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("build histogram %s: %w", filepath.Base(path), err)
	}
	p.Add(h)
	if err := p.Save(7*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteOverviewHTML renders overview.html into figDir: daily severity
// bucket counts and the daily mean score trend.
func WriteOverviewHTML(figDir string, flights []flightops.Flight) error {
	if err := os.MkdirAll(figDir, 0755); err != nil {
		return fmt.Errorf("create figure dir: %w", err)
	}

	ranked := rankByDay(flights)
	type bucketCounts struct{ low, medium, high int }
	counts := map[string]*bucketCounts{}
	var dates []string
	for _, r := range ranked {
		bc := counts[r.depDate]
		if bc == nil {
			bc = &bucketCounts{}
			counts[r.depDate] = bc
			dates = append(dates, r.depDate)
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

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Flight Difficulty Overview"}),
		charts.WithTitleOpts(opts.Title{Title: "Daily severity bucket counts"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(dates)
	var low, med, high []opts.BarData
	for _, d := range dates {
		bc := counts[d]
		low = append(low, opts.BarData{Value: bc.low})
		med = append(med, opts.BarData{Value: bc.medium})
		high = append(high, opts.BarData{Value: bc.high})
	}
	bar.AddSeries("Low", low).AddSeries("Medium", med).AddSeries("High", high)

	meanDates, means := DailyMeanFDS(flights)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Daily mean Flight Difficulty Score"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(meanDates)
	var lineData []opts.LineData
	for _, m := range means {
		lineData = append(lineData, opts.LineData{Value: m})
	}
	line.AddSeries("mean fds", lineData)

	page := components.NewPage()
	page.AddCharts(bar, line)

	path := filepath.Join(figDir, "overview.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overview page: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render overview page: %w", err)
	}
	return nil
}
