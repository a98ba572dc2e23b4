// Package view turns the unified table into render specs: chart series
// and the filtered, sorted table view. Everything here is a pure
// function of its inputs; the table is never mutated.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fieldworks/hourboard/internal/ingest"
	"github.com/fieldworks/hourboard/internal/milestone"
)

// ChartType selects the chart rendering.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartScatter   ChartType = "scatter"
	ChartLine      ChartType = "line"
	ChartMilestone ChartType = "milestone"
)

// ChartTypes lists the supported charts in display order.
var ChartTypes = []ChartType{ChartBar, ChartScatter, ChartLine, ChartMilestone}

// ParseChartType accepts the wire/config spelling of a chart type.
func ParseChartType(s string) (ChartType, error) {
	switch ChartType(strings.ToLower(strings.TrimSpace(s))) {
	case ChartBar, "":
		return ChartBar, nil
	case ChartScatter:
		return ChartScatter, nil
	case ChartLine:
		return ChartLine, nil
	case ChartMilestone, "pie":
		return ChartMilestone, nil
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

// Filter selects rows by identifier substring and/or hours range. The
// zero value matches everything.
type Filter struct {
	Identifier string
	MinHours   *float64
	MaxHours   *float64
}

// Match reports whether the row passes the filter. Rows with missing
// hours pass only when no hours bound is set.
func (f Filter) Match(r ingest.Row) bool {
	if f.Identifier != "" &&
		!strings.Contains(strings.ToLower(r.Identifier), strings.ToLower(f.Identifier)) {
		return false
	}
	if f.MinHours == nil && f.MaxHours == nil {
		return true
	}
	if !r.HasHours {
		return false
	}
	if f.MinHours != nil && r.Hours < *f.MinHours {
		return false
	}
	if f.MaxHours != nil && r.Hours > *f.MaxHours {
		return false
	}
	return true
}

// Sort orders rows by one field. Field is "identifier", "hours",
// "source_file", or a metadata key; empty keeps insertion order. Sorting
// is stable.
type Sort struct {
	Field string
	Desc  bool
}

// Options parameterize Present.
type Options struct {
	Filter Filter
	Sort   Sort
	Chart  ChartType
	// Threshold is used by the milestone chart; zero means
	// milestone.DefaultThreshold.
	Threshold float64
}

// Bar is one labeled bar value.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Point is one scatter/line point.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// RenderSpec is everything the shell needs to draw: chart series plus
// the table view with filter and sort applied.
type RenderSpec struct {
	Chart  ChartType `json:"chart"`
	Bars   []Bar     `json:"bars,omitempty"`
	Points []Point   `json:"points,omitempty"`

	Columns []string     `json:"columns"`
	Rows    []ingest.Row `json:"-"`
}

// Present builds the render spec for the table under the given options.
func Present(t *ingest.Table, opt Options) RenderSpec {
	if t == nil {
		t = &ingest.Table{}
	}
	if opt.Chart == "" {
		opt.Chart = ChartBar
	}

	rows := filterRows(t, opt.Filter)
	sortRows(rows, opt.Sort)

	spec := RenderSpec{
		Chart:   opt.Chart,
		Columns: Columns(t),
		Rows:    rows,
	}

	switch opt.Chart {
	case ChartBar:
		spec.Bars = barSeries(rows)
	case ChartScatter:
		spec.Points = scatterSeries(rows)
	case ChartLine:
		spec.Points = lineSeries(rows, t.HasMetaKey("date"))
	case ChartMilestone:
		threshold := opt.Threshold
		if threshold == 0 {
			threshold = milestone.DefaultThreshold
		}
		spec.Bars = milestoneSeries(rows, threshold)
	}
	return spec
}

// Columns returns the canonical column order: identifier, hours,
// source_file, then metadata in first-seen order.
func Columns(t *ingest.Table) []string {
	cols := []string{ingest.FieldIdentifier, ingest.FieldHours, "source_file"}
	return append(cols, t.MetaKeys...)
}

func filterRows(t *ingest.Table, f Filter) []ingest.Row {
	out := make([]ingest.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortRows(rows []ingest.Row, s Sort) {
	if s.Field == "" {
		return
	}
	less := lessFunc(s.Field)
	sort.SliceStable(rows, func(i, j int) bool {
		if s.Desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func lessFunc(field string) func(a, b ingest.Row) bool {
	switch field {
	case ingest.FieldIdentifier:
		return func(a, b ingest.Row) bool { return a.Identifier < b.Identifier }
	case ingest.FieldHours:
		// Missing hours sort after any present value.
		return func(a, b ingest.Row) bool {
			if a.HasHours != b.HasHours {
				return a.HasHours
			}
			return a.Hours < b.Hours
		}
	case "source_file":
		return func(a, b ingest.Row) bool { return a.SourceFile < b.SourceFile }
	default:
		return func(a, b ingest.Row) bool { return a.Meta[field] < b.Meta[field] }
	}
}

// barSeries is the latest reading per identifier, ascending by hours
// like the horizontal bar chart it feeds.
func barSeries(rows []ingest.Row) []Bar {
	latest := make(map[string]float64)
	order := make([]string, 0)
	for _, r := range rows {
		if !r.HasHours {
			continue
		}
		if _, seen := latest[r.Identifier]; !seen {
			order = append(order, r.Identifier)
		}
		latest[r.Identifier] = r.Hours
	}

	bars := make([]Bar, 0, len(order))
	for _, id := range order {
		bars = append(bars, Bar{Label: id, Value: latest[id]})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Value != bars[j].Value {
			return bars[i].Value < bars[j].Value
		}
		return bars[i].Label < bars[j].Label
	})
	return bars
}

func scatterSeries(rows []ingest.Row) []Point {
	pts := make([]Point, 0, len(rows))
	for i, r := range rows {
		if !r.HasHours {
			continue
		}
		pts = append(pts, Point{X: float64(i), Y: r.Hours, Label: r.Identifier})
	}
	return pts
}

// lineSeries orders points by the date metadata when the table carries
// one, otherwise by insertion order.
func lineSeries(rows []ingest.Row, hasDate bool) []Point {
	type sample struct {
		row  ingest.Row
		when time.Time
		ok   bool
	}
	samples := make([]sample, 0, len(rows))
	for _, r := range rows {
		if !r.HasHours {
			continue
		}
		s := sample{row: r}
		if hasDate {
			s.when, s.ok = parseDate(r.Meta["date"])
		}
		samples = append(samples, s)
	}
	if hasDate {
		sort.SliceStable(samples, func(i, j int) bool {
			if samples[i].ok != samples[j].ok {
				return samples[i].ok
			}
			return samples[i].when.Before(samples[j].when)
		})
	}

	pts := make([]Point, 0, len(samples))
	for i, s := range samples {
		label := s.row.Identifier
		if s.ok {
			label = s.row.Meta["date"]
		}
		pts = append(pts, Point{X: float64(i), Y: s.row.Hours, Label: label})
	}
	return pts
}

func milestoneSeries(rows []ingest.Row, threshold float64) []Bar {
	var under, over int
	latest := make(map[string]float64)
	for _, r := range rows {
		if r.HasHours {
			latest[r.Identifier] = r.Hours
		}
	}
	for _, h := range latest {
		if h >= threshold {
			over++
		} else {
			under++
		}
	}
	return []Bar{
		{Label: fmt.Sprintf("Under %.0f", threshold), Value: float64(under)},
		{Label: fmt.Sprintf("Over %.0f", threshold), Value: float64(over)},
	}
}

var dateLayouts = []string{
	"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006", "2006/01/02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
