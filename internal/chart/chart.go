// Package chart renders dashboard aggregates as SVG.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"insight/internal/core"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

const (
	width  = 800
	height = 400
)

// ContentType is the media type written by every renderer.
const ContentType = "image/svg+xml"

// Labels title a chart and its axes.
type Labels struct {
	Title string
	X     string
	Y     string
}

// BarDrawable reports whether Bar has something to draw: at least one
// non-zero group.
func BarDrawable(groups []core.Group) bool {
	for _, g := range groups {
		if !g.Total.IsZero() {
			return true
		}
	}
	return false
}

// PieDrawable reports whether Pie has at least one positive slice.
func PieDrawable(groups []core.Group) bool {
	for _, g := range groups {
		if g.Total.IsPositive() {
			return true
		}
	}
	return false
}

// LineDrawable reports whether Line has at least one month.
func LineDrawable(buckets []core.Bucket) bool { return len(buckets) > 0 }

// Bar draws one bar per group.
func Bar(w io.Writer, labels Labels, groups []core.Group) error {
	if !BarDrawable(groups) {
		return ErrNoData
	}
	bars := make([]chart.Value, len(groups))
	lo, hi := 0.0, 0.0
	for i, g := range groups {
		v := g.Total.InexactFloat64()
		bars[i] = chart.Value{Label: g.Key, Value: v}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	graph := chart.BarChart{
		Title:      labels.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  labels.Y,
			Range: &chart.ContinuousRange{Min: lo, Max: hi * 1.1},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func barWidth(n int) int {
	w := (width - 120) / n * 2 / 3
	switch {
	case w < 8:
		return 8
	case w > 60:
		return 60
	}
	return w
}

// Pie draws each group's share of the total. Groups at or below zero cannot
// form a slice and are left out.
func Pie(w io.Writer, labels Labels, groups []core.Group) error {
	if !PieDrawable(groups) {
		return ErrNoData
	}
	var values []chart.Value
	for _, g := range groups {
		if !g.Total.IsPositive() {
			continue
		}
		values = append(values, chart.Value{Label: g.Key, Value: g.Total.InexactFloat64()})
	}

	graph := chart.PieChart{
		Title:  labels.Title,
		Width:  height + 100,
		Height: height + 100,
		Values: values,
	}
	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// Line draws monthly totals in order. A single month is drawn as a flat
// segment across that month.
func Line(w io.Writer, labels Labels, buckets []core.Bucket) error {
	if !LineDrawable(buckets) {
		return ErrNoData
	}
	xs := make([]time.Time, 0, len(buckets)+1)
	ys := make([]float64, 0, len(buckets)+1)
	for _, b := range buckets {
		xs = append(xs, b.Month)
		ys = append(ys, b.Total.InexactFloat64())
	}
	if len(buckets) == 1 {
		xs = append(xs, buckets[0].Month.AddDate(0, 1, -1))
		ys = append(ys, ys[0])
	}

	yAxis := chart.YAxis{Name: labels.Y}
	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo, hi = math.Min(lo, y), math.Max(hi, y)
	}
	if lo == hi {
		lo, hi = math.Min(0, lo), math.Max(0, hi)
		if lo == hi {
			hi = 1
		}
		yAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
	}

	graph := chart.Chart{
		Title:      labels.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           labels.X,
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2006"),
		},
		YAxis: yAxis,
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    labels.Y,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeWidth: 2, DotWidth: 4},
			},
		},
	}
	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}
