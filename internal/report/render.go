// internal/report/render.go
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// RenderOptions controls the textual report.
type RenderOptions struct {
	// BarWidth is the width of the longest bar
	BarWidth int
	// Latest shows the most recent N entries; 0 hides the table
	Latest int
	// PreviewWidth truncates entry text to this many terminal columns
	PreviewWidth int
	// Twelve renders hours as 12-hour clock labels
	Twelve bool
}

// DefaultRenderOptions returns sensible terminal defaults.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{BarWidth: 30, Latest: 10, PreviewWidth: 60}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

// Render writes the summary, daily and hourly tables, and optionally the
// latest entries taken from records.
func Render(w io.Writer, stats Stats, records []record.DisplayRecord, opts RenderOptions) {
	if opts.BarWidth <= 0 {
		opts.BarWidth = DefaultRenderOptions().BarWidth
	}
	if opts.PreviewWidth <= 0 {
		opts.PreviewWidth = DefaultRenderOptions().PreviewWidth
	}

	if stats.Total == 0 {
		fmt.Fprintln(w, "No records to report.")
		return
	}

	renderSummary(w, stats)
	renderDays(w, stats, opts)
	renderHours(w, stats, opts)
	if opts.Latest > 0 && len(records) > 0 {
		renderLatest(w, records, opts)
	}
}

func renderSummary(w io.Writer, stats Stats) {
	t := newTable(w, "Summary")
	peak, peakCount := stats.PeakHour()
	t.AppendRows([]table.Row{
		{"Entries", stats.Total},
		{"Days", len(stats.Days)},
		{"First", stats.First},
		{"Last", stats.Last},
		{"Min / Max per day", fmt.Sprintf("%d / %d", stats.Box.Min, stats.Box.Max)},
		{"Q1 / Median / Q3", fmt.Sprintf("%d / %d / %d", stats.Box.Q1, stats.Box.Median, stats.Box.Q3)},
		{"Average per day", fmt.Sprintf("%.1f", stats.Box.Average)},
		{"Busiest hour", fmt.Sprintf("%02d:00 (%d)", peak, peakCount)},
	})
	t.Render()
}

func renderDays(w io.Writer, stats Stats, opts RenderOptions) {
	t := newTable(w, "Entries per day")
	t.AppendHeader(table.Row{"Date", "Count", ""})
	for _, day := range stats.Days {
		t.AppendRow(table.Row{day.Date, day.Count, Bar(day.Count, stats.Box.Max, opts.BarWidth)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func renderHours(w io.Writer, stats Stats, opts RenderOptions) {
	max := 0
	for _, c := range stats.Hours {
		if c > max {
			max = c
		}
	}

	t := newTable(w, "Entries per hour")
	t.AppendHeader(table.Row{"Hour", "Count", ""})
	for h, c := range stats.Hours {
		t.AppendRow(table.Row{HourLabel(h, opts.Twelve), c, Bar(c, max, opts.BarWidth)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func renderLatest(w io.Writer, records []record.DisplayRecord, opts RenderOptions) {
	sorted := append([]record.DisplayRecord(nil), records...)
	record.SortDisplay(sorted)
	if len(sorted) > opts.Latest {
		sorted = sorted[len(sorted)-opts.Latest:]
	}

	t := newTable(w, "Latest entries")
	t.AppendHeader(table.Row{"Time", "Prompt"})
	for i := len(sorted) - 1; i >= 0; i-- {
		t.AppendRow(table.Row{sorted[i].FullTime, Preview(sorted[i].Text, opts.PreviewWidth)})
	}
	t.Render()
}

// Bar draws value scaled against max in at most width cells.
func Bar(value, max, width int) string {
	if value <= 0 || max <= 0 || width <= 0 {
		return ""
	}
	n := value * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// HourLabel formats an hour of day.
func HourLabel(hour int, twelve bool) string {
	if !twelve {
		return fmt.Sprintf("%02d:00", hour)
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d %s", h, suffix)
}

// Preview flattens whitespace and truncates s to width terminal columns.
func Preview(s string, width int) string {
	flat := strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(flat, width, "…")
}
