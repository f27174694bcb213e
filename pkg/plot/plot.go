// Package plot draws the power trace of a run.
package plot

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ja7ad/gpuwatt/pkg/trace"
	"github.com/ja7ad/gpuwatt/pkg/util"
)

// PNGSuffix names the chart next to the collapsed file.
const PNGSuffix = "_power_consumption.png"

// ErrTooFewPoints indicates fewer than two samples, which leaves the x axis without a range.
var ErrTooFewPoints = errors.New("plot: need at least two samples")

// Options controls the chart.
type Options struct {
	Title  string
	Width  int
	Height int
	// EMA in (0,1] adds a smoothed overlay; 0 disables it.
	EMA float64
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Power Consumption Over Time"
	}
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	return o
}

// Series returns the x (seconds since first sample) and y (watts) values of samples.
func Series(samples []trace.PowerSample) (xs, ys []float64) {
	xs = make([]float64, len(samples))
	ys = make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s.TNs) / 1e9
		ys[i] = s.Watts.Float()
	}
	return xs, ys
}

// PowerPNG renders power against time as a PNG.
func PowerPNG(w io.Writer, samples []trace.PowerSample, opts Options) error {
	if len(samples) < 2 {
		return ErrTooFewPoints
	}
	opts = opts.withDefaults()
	xs, ys := Series(samples)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Power Consumption",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 1.5,
			},
		},
	}
	if opts.EMA > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "EMA",
			XValues: xs,
			YValues: util.Smooth(opts.EMA, ys),
			Style: chart.Style{
				StrokeColor: chart.ColorAlternateGray,
				StrokeWidth: 1,
			},
		})
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Time (seconds)"},
		YAxis:      chart.YAxis{Name: "Power (W)"},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return ch.Render(chart.PNG, w)
}
