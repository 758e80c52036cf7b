// internal/record/daterange.go
package record

import (
	"fmt"
	"strings"
	"time"
)

// DateRange filters records by calendar day. A zero Start or End leaves that
// side unbounded. Start is inclusive; the range ends before the day after End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds in loc. Empty strings mean unbounded.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}

	var rng DateRange
	var err error

	if s := strings.TrimSpace(start); s != "" {
		if rng.Start, err = time.ParseInLocation(DateLayout, s, loc); err != nil {
			return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if e := strings.TrimSpace(end); e != "" {
		if rng.End, err = time.ParseInLocation(DateLayout, e, loc); err != nil {
			return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}

	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	return rng, nil
}

// Contains reports whether day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	if !r.Start.IsZero() && day.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !day.Before(r.End.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// TargetKey is the date key the scroll driver stops at. An open start means
// scroll to the end of the list.
func (r DateRange) TargetKey() string {
	if r.Start.IsZero() {
		return DefaultTargetKey
	}
	return DateKey(r.Start)
}

// String renders the range for status messages.
func (r DateRange) String() string {
	start, end := "…", "…"
	if !r.Start.IsZero() {
		start = r.Start.Format(DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(DateLayout)
	}
	return start + " – " + end
}

// Filter keeps display records whose date lies in rng. Records whose date
// cannot be parsed are dropped.
func Filter(records []DisplayRecord, rng DateRange, loc *time.Location) []DisplayRecord {
	out := make([]DisplayRecord, 0, len(records))
	for _, rec := range records {
		day, ok := rec.Day(loc)
		if !ok {
			continue
		}
		if rng.Contains(day) {
			out = append(out, rec)
		}
	}
	return out
}
