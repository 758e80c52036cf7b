// internal/record/record.go

// Package record defines the canonical activity entries handled by the
// extraction pipeline and the date range used to filter them.
package record

import (
	"sort"
	"strings"
	"time"
)

const (
	// FullTimeLayout is the display layout of a record timestamp.
	FullTimeLayout = "2006-01-02 15:04:05"
	// DateLayout is the layout of the date part of FullTime and of range inputs.
	DateLayout = "2006-01-02"
	// KeyLayout is the layout of the per-entry date attribute on the host page.
	KeyLayout = "20060102"
	// DefaultTargetKey makes the scroll driver run until the end of the list.
	DefaultTargetKey = "20000101"
)

// Record is a single timestamped history entry. Timestamp is epoch milliseconds
// and is unique within a pool.
type Record struct {
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Text      string `json:"text" yaml:"text"`
}

// Time returns the record timestamp in the given location.
func (r Record) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(r.Timestamp).In(loc)
}

// DisplayRecord is the output-facing form of a record.
type DisplayRecord struct {
	FullTime string `json:"fullTime" yaml:"fullTime"`
	Text     string `json:"text" yaml:"text"`
}

// Date returns the date part of FullTime.
func (d DisplayRecord) Date() string {
	date, _, _ := strings.Cut(d.FullTime, " ")
	return date
}

// Day parses the date part of FullTime in loc.
func (d DisplayRecord) Day(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, d.Date(), loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// Display formats r for output in loc.
func Display(r Record, loc *time.Location) DisplayRecord {
	return DisplayRecord{
		FullTime: r.Time(loc).Format(FullTimeLayout),
		Text:     r.Text,
	}
}

// DisplayAll maps records to display records, keeping their order.
func DisplayAll(records []Record, loc *time.Location) []DisplayRecord {
	out := make([]DisplayRecord, 0, len(records))
	for _, r := range records {
		out = append(out, Display(r, loc))
	}
	return out
}

// SortDisplay orders display records chronologically. FullTime strings in
// FullTimeLayout sort lexically in time order.
func SortDisplay(records []DisplayRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FullTime < records[j].FullTime
	})
}

// SortRecords orders records by timestamp.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

// DateKey formats t as the host page date attribute (YYYYMMDD).
func DateKey(t time.Time) string {
	return t.Format(KeyLayout)
}

// KeyToDate turns a YYYYMMDD key into YYYY-MM-DD. Anything else is returned unchanged.
func KeyToDate(key string) string {
	key = strings.TrimSpace(key)
	if len(key) != len(KeyLayout) {
		return key
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return key
		}
	}
	return key[0:4] + "-" + key[4:6] + "-" + key[6:8]
}
