// internal/report/stats.go

// Package report summarises collected history: entries per day, entries per
// hour of day, and the distribution of daily volume.
package report

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// DayCount is the number of entries on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// BoxStats describes the spread of daily counts.
type BoxStats struct {
	Min     int     `json:"min"`
	Q1      int     `json:"q1"`
	Median  int     `json:"median"`
	Q3      int     `json:"q3"`
	Max     int     `json:"max"`
	Average float64 `json:"average"`
}

// Stats is the computed summary of a record set.
type Stats struct {
	Total int        `json:"total"`
	First string     `json:"first,omitempty"`
	Last  string     `json:"last,omitempty"`
	Days  []DayCount `json:"days"`
	Hours [24]int    `json:"hours"`
	Box   BoxStats   `json:"box"`
}

var clockPattern = regexp.MustCompile(`(?i)(\d+):(\d+)\s*(AM|PM)?`)

// Compute builds the summary. Days are sorted by date string; records
// without a recognisable clock still count toward their day.
func Compute(records []record.DisplayRecord) Stats {
	stats := Stats{Total: len(records), Days: []DayCount{}}
	if len(records) == 0 {
		return stats
	}

	perDay := make(map[string]int)
	for _, rec := range records {
		perDay[rec.Date()]++
		if hour, ok := Hour(rec.FullTime); ok {
			stats.Hours[hour]++
		}

		if stats.First == "" || rec.FullTime < stats.First {
			stats.First = rec.FullTime
		}
		if rec.FullTime > stats.Last {
			stats.Last = rec.FullTime
		}
	}

	dates := make([]string, 0, len(perDay))
	for date := range perDay {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	values := make([]int, 0, len(dates))
	for _, date := range dates {
		stats.Days = append(stats.Days, DayCount{Date: date, Count: perDay[date]})
		values = append(values, perDay[date])
	}
	stats.Box = computeBox(values)

	return stats
}

// Hour extracts the hour of day from a time string, honouring an AM/PM suffix.
func Hour(fullTime string) (int, bool) {
	m := clockPattern.FindStringSubmatch(fullTime)
	if m == nil {
		return 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// computeBox uses floor(n*p) indexing into the sorted counts.
func computeBox(values []int) BoxStats {
	n := len(values)
	if n == 0 {
		return BoxStats{}
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	sum := 0
	for _, v := range values {
		sum += v
	}

	at := func(p float64) int {
		return sorted[int(math.Floor(float64(n)*p))]
	}

	return BoxStats{
		Min:     sorted[0],
		Q1:      at(0.25),
		Median:  at(0.5),
		Q3:      at(0.75),
		Max:     sorted[n-1],
		Average: math.Round(float64(sum)/float64(n)*10) / 10,
	}
}

// PeakHour returns the busiest hour and its count. Ties go to the earlier hour.
func (s Stats) PeakHour() (int, int) {
	peak := 0
	for h, c := range s.Hours {
		if c > s.Hours[peak] {
			peak = h
		}
	}
	return peak, s.Hours[peak]
}
