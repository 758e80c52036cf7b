// internal/record/record_test.go
package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplay(t *testing.T) {
	r := Record{Timestamp: 1700000000000, Text: "hello"}
	d := Display(r, time.UTC)

	assert.Equal(t, "2023-11-14 22:13:20", d.FullTime)
	assert.Equal(t, "hello", d.Text)
	assert.Equal(t, "2023-11-14", d.Date())
}

func TestSortDisplay(t *testing.T) {
	records := []DisplayRecord{
		{FullTime: "2024-01-02 10:00:00", Text: "b"},
		{FullTime: "2024-01-01 23:59:59", Text: "a"},
		{FullTime: "2024-01-02 09:00:00", Text: "c"},
	}
	SortDisplay(records)

	assert.Equal(t, []string{"a", "c", "b"}, []string{records[0].Text, records[1].Text, records[2].Text})
}

func TestKeyToDate(t *testing.T) {
	assert.Equal(t, "2024-03-05", KeyToDate("20240305"))
	assert.Equal(t, "Today", KeyToDate("Today"))
	assert.Equal(t, "2024030", KeyToDate("2024030"))
}

func TestParseDateRange(t *testing.T) {
	rng, err := ParseDateRange("2024-01-01", "2024-01-31", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "20240101", rng.TargetKey())

	open, err := ParseDateRange("", "", time.UTC)
	require.NoError(t, err)
	assert.True(t, open.Start.IsZero())
	assert.Equal(t, DefaultTargetKey, open.TargetKey())

	_, err = ParseDateRange("2024-02-01", "2024-01-01", time.UTC)
	assert.Error(t, err)

	_, err = ParseDateRange("01/02/2024", "", time.UTC)
	assert.Error(t, err)
}

func TestFilterBoundaries(t *testing.T) {
	rng, err := ParseDateRange("2024-01-10", "2024-01-20", time.UTC)
	require.NoError(t, err)

	records := []DisplayRecord{
		{FullTime: "2024-01-09 23:59:59", Text: "before start"},
		{FullTime: "2024-01-10 00:00:00", Text: "on start"},
		{FullTime: "2024-01-20 23:59:59", Text: "on end"},
		{FullTime: "2024-01-21 00:00:00", Text: "day after end"},
		{FullTime: "Today 10:00:00", Text: "unparseable"},
	}

	got := Filter(records, rng, time.UTC)
	texts := make([]string, 0, len(got))
	for _, r := range got {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"on start", "on end"}, texts)
}

func TestFilterOpenStart(t *testing.T) {
	rng, err := ParseDateRange("", "2024-01-20", time.UTC)
	require.NoError(t, err)

	records := []DisplayRecord{
		{FullTime: "1999-01-01 00:00:00", Text: "ancient"},
		{FullTime: "2024-01-20 12:00:00", Text: "on end"},
	}
	assert.Len(t, Filter(records, rng, time.UTC), 2)
}
