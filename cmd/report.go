package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/calloutsim/app"
)

// renderReport writes an HTML bar chart of the call outcomes per agency.
func renderReport(w io.Writer, tally *app.Tally, title string) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Calls per agency", Subtitle: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Agency"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Calls"}),
	)

	agencies := tally.Agencies()
	bar.SetXAxis(agencies)
	for _, ev := range summaryColumns {
		data := make([]opts.BarData, 0, len(agencies))
		for _, id := range agencies {
			data = append(data, opts.BarData{Value: tally.Agency(id).Calls[ev]})
		}
		bar.AddSeries(string(ev), data)
	}
	shortfall := make([]opts.BarData, 0, len(agencies))
	for _, id := range agencies {
		shortfall = append(shortfall, opts.BarData{Value: tally.Agency(id).Shortfall})
	}
	bar.AddSeries("staging shortfall", shortfall)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func writeReport(path string, tally *app.Tally, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderReport(f, tally, title); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
