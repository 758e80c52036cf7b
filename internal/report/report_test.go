// internal/report/report_test.go
package report

import (
	"bytes"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

func rec(fullTime string) record.DisplayRecord {
	return record.DisplayRecord{FullTime: fullTime, Text: "prompt at " + fullTime}
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.Days)
	assert.Equal(t, BoxStats{}, stats.Box)
}

func TestComputeDailyAndHourly(t *testing.T) {
	records := []record.DisplayRecord{
		rec("2024-01-02 09:00:00"),
		rec("2024-01-01 23:59:59"),
		rec("2024-01-01 00:10:00"),
		rec("2024-01-02 09:30:00"),
		rec("2024-01-02 14:00:00"),
		rec("2024-01-03 09:45:00"),
	}

	stats := Compute(records)

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, []DayCount{
		{Date: "2024-01-01", Count: 2},
		{Date: "2024-01-02", Count: 3},
		{Date: "2024-01-03", Count: 1},
	}, stats.Days)
	assert.Equal(t, 3, stats.Hours[9])
	assert.Equal(t, 1, stats.Hours[0])
	assert.Equal(t, 1, stats.Hours[23])
	assert.Equal(t, 1, stats.Hours[14])
	assert.Equal(t, "2024-01-01 00:10:00", stats.First)
	assert.Equal(t, "2024-01-03 09:45:00", stats.Last)

	peak, count := stats.PeakHour()
	assert.Equal(t, 9, peak)
	assert.Equal(t, 3, count)
}

func TestComputeBoxFloorIndexing(t *testing.T) {
	// sorted counts: 1 2 3 4 -> q1=idx1, median=idx2, q3=idx3
	box := computeBox([]int{4, 1, 3, 2})
	assert.Equal(t, BoxStats{Min: 1, Q1: 2, Median: 3, Q3: 4, Max: 4, Average: 2.5}, box)

	single := computeBox([]int{7})
	assert.Equal(t, BoxStats{Min: 7, Q1: 7, Median: 7, Q3: 7, Max: 7, Average: 7}, single)

	// 10/3 = 3.333... rounds to one decimal
	assert.Equal(t, 3.3, computeBox([]int{3, 3, 4}).Average)
}

func TestHour(t *testing.T) {
	tests := []struct {
		in   string
		hour int
		ok   bool
	}{
		{"2024-01-01 13:05:00", 13, true},
		{"2024-01-01 1:05 PM", 13, true},
		{"2024-01-01 12:30 PM", 12, true},
		{"2024-01-01 12:30 am", 0, true},
		{"2024-01-01 11:59 AM", 11, true},
		{"2024-01-01 25:00", 0, false},
		{"2024-01-01", 0, false},
	}
	for _, tt := range tests {
		hour, ok := Hour(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.hour, hour, tt.in)
	}
}

func TestBarAndLabels(t *testing.T) {
	assert.Equal(t, "", Bar(0, 10, 20))
	assert.Equal(t, "█", Bar(1, 100, 20))
	assert.Equal(t, 20, runewidth.StringWidth(Bar(10, 10, 20)))

	assert.Equal(t, "00:00", HourLabel(0, false))
	assert.Equal(t, "12 AM", HourLabel(0, true))
	assert.Equal(t, "12 PM", HourLabel(12, true))
	assert.Equal(t, "11 PM", HourLabel(23, true))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", Preview("a\n b\t c", 20))

	wide := Preview("你好世界你好世界", 9)
	assert.LessOrEqual(t, runewidth.StringWidth(wide), 9)
	assert.Contains(t, wide, "…")
}

func TestRender(t *testing.T) {
	records := []record.DisplayRecord{
		rec("2024-01-01 08:00:00"),
		rec("2024-01-02 08:30:00"),
		rec("2024-01-02 21:00:00"),
	}

	var buf bytes.Buffer
	Render(&buf, Compute(records), records, DefaultRenderOptions())
	out := buf.String()

	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Entries per day")
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "Entries per hour")
	assert.Contains(t, out, "Latest entries")
	assert.Contains(t, out, "prompt at 2024-01-02 21:00:00")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Compute(nil), nil, RenderOptions{})
	assert.Equal(t, "No records to report.\n", buf.String())
}
