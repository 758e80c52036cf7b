// internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
)

func TestLoadFromBytes(t *testing.T) {
	configYAML := `
name: "bytes_test"
range:
  start: "2024-01-01"
  end: "2024-01-31"
scroll:
  interval: 500ms
  max_ticks: 50
selectors:
  entry: "article"
output:
  format: "csv"
  file: "history.csv"
`

	config, err := LoadFromBytes([]byte(configYAML))
	require.NoError(t, err)

	assert.Equal(t, "bytes_test", config.Name)
	assert.Equal(t, 500*time.Millisecond, config.Scroll.Interval)
	assert.Equal(t, scroll.DefaultSettleDelay, config.Scroll.SettleDelay)
	assert.Equal(t, 50, config.Scroll.MaxTicks)
	assert.Equal(t, "article", config.Selectors.Entry)
	assert.Equal(t, extract.DefaultSelectors().Container, config.Selectors.Container)
	assert.Equal(t, "csv", config.Output.Format)
	assert.Equal(t, DefaultTargetURL, config.Target.URL)
}

func TestLoadFromBytesEmptyUsesDefaults(t *testing.T) {
	config, err := LoadFromBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, "json", config.Output.Format)
	assert.Equal(t, scroll.DefaultMaxTicks, config.Scroll.MaxTicks)
	assert.Equal(t, 3, config.Retry.MaxRetries)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file_test\noutput:\n  format: sqlite\n"), 0644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file_test", config.Name)
	assert.Equal(t, "activity", config.Output.Table)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not found")

	_, err = LoadFromFile("")
	assert.Error(t, err)
}

func TestLoadFromReader(t *testing.T) {
	config, err := LoadFromReader(bytes.NewBufferString("timezone: UTC\n"))
	require.NoError(t, err)
	assert.Equal(t, "UTC", config.Timezone)

	_, err = LoadFromReader(nil)
	assert.Error(t, err)
}

func TestEnvironmentExpansion(t *testing.T) {
	t.Setenv("ACTIVITY_PROFILE", "/tmp/profile")

	config, err := LoadFromBytes([]byte("browser:\n  user_data_dir: ${ACTIVITY_PROFILE}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/profile", config.Browser.UserDataDir)
}

func TestSaveAndReload(t *testing.T) {
	original := GenerateTemplate("headless")
	original.Range.Start = "2024-02-01"

	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	require.NoError(t, SaveToFile(&original, path))

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.Name, reloaded.Name)
	assert.Equal(t, original.Scroll, reloaded.Scroll)
	assert.Equal(t, original.Selectors, reloaded.Selectors)
	assert.Equal(t, "2024-02-01", reloaded.Range.Start)
	assert.True(t, reloaded.Browser.Headless)
}

func TestSaveToWriterRejectsInvalid(t *testing.T) {
	config := Default()
	config.Output.Format = "pdf"

	var buf bytes.Buffer
	assert.Error(t, SaveToWriter(config, &buf))
	assert.Error(t, SaveToWriter(nil, &buf))
	assert.Error(t, SaveToWriter(Default(), nil))
}

func TestGenerateTemplate(t *testing.T) {
	for _, kind := range []string{"basic", "headless"} {
		t.Run(kind, func(t *testing.T) {
			config := GenerateTemplate(kind)
			assert.NotEmpty(t, config.Name)
			assert.NoError(t, config.Validate())
		})
	}

	headless := GenerateTemplate("headless")
	assert.True(t, headless.Browser.Headless)
	assert.Equal(t, "sqlite", headless.Output.Format)
}

func TestLocationAndDateRange(t *testing.T) {
	config := Default()

	loc, err := config.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	config.Timezone = "UTC"
	config.Range.Start = "2024-01-10"
	loc, err = config.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	rng, err := config.DateRange(loc)
	require.NoError(t, err)
	assert.Equal(t, "20240110", rng.TargetKey())
	assert.True(t, rng.End.IsZero())
}
