// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/ActivityScrapexter/internal/browser"
	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/interceptor"
	"github.com/valpere/ActivityScrapexter/internal/payload"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Empty input yields the
// default configuration.
func LoadFromBytes(data []byte) (*Config, error) {
	expandedData := expandEnvironmentVariables(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer f.Close()

	return SaveToWriter(config, f)
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return enc.Close()
}

// GenerateTemplate generates a template configuration. "headless" produces
// a variant for unattended runs against an existing browser profile.
func GenerateTemplate(templateType string) Config {
	config := *Default()
	config.Name = "gemini_activity"

	switch strings.ToLower(templateType) {
	case "headless":
		config.Name = "gemini_activity_headless"
		config.Browser.Headless = true
		config.Browser.UserDataDir = "${HOME}/.config/activityscrapexter/profile"
		config.Output.Format = "sqlite"
		config.Output.File = "gemini_activity.db"
	default:
		config.Browser.UserDataDir = "${HOME}/.config/activityscrapexter/profile"
	}

	return config
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DateRange parses the configured range in loc.
func (c *Config) DateRange(loc *time.Location) (record.DateRange, error) {
	return record.ParseDateRange(c.Range.Start, c.Range.End, loc)
}

// expandEnvironmentVariables substitutes environment variables in the configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Target.URL == "" {
		config.Target.URL = DefaultTargetURL
	}

	defaults := browser.DefaultBrowserConfig()
	if config.Browser.Timeout == 0 {
		config.Browser.Timeout = defaults.Timeout
	}
	if config.Browser.ViewportWidth == 0 {
		config.Browser.ViewportWidth = defaults.ViewportWidth
	}
	if config.Browser.ViewportHeight == 0 {
		config.Browser.ViewportHeight = defaults.ViewportHeight
	}
	if config.Browser.WaitDelay == 0 {
		config.Browser.WaitDelay = defaults.WaitDelay
	}

	if config.Interceptor.EndpointPattern == "" {
		config.Interceptor.EndpointPattern = interceptor.DefaultEndpointPattern
	}
	if config.Interceptor.Binding == "" {
		config.Interceptor.Binding = interceptor.DefaultBinding
	}

	if config.Payload.MinLength == 0 {
		config.Payload.MinLength = payload.DefaultMinLength
	}
	if config.Payload.Marker == "" {
		config.Payload.Marker = payload.DefaultMarker
	}

	config.Selectors = config.Selectors.Merge(extract.DefaultSelectors())

	if config.Scroll.Interval == 0 {
		config.Scroll.Interval = scroll.DefaultInterval
	}
	if config.Scroll.SettleDelay == 0 {
		config.Scroll.SettleDelay = scroll.DefaultSettleDelay
	}
	if config.Scroll.MaxTicks == 0 {
		config.Scroll.MaxTicks = scroll.DefaultMaxTicks
	}

	if config.Output.Format == "" {
		config.Output.Format = "json"
	}
	if config.Output.SheetName == "" {
		config.Output.SheetName = "Activity"
	}
	if config.Output.Table == "" {
		config.Output.Table = "activity"
	}

	if config.Server.Listen == "" {
		config.Server.Listen = "127.0.0.1:8080"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 10
	}
	if config.Server.Burst == 0 {
		config.Server.Burst = 20
	}

	if config.Retry.MaxRetries == 0 {
		config.Retry.MaxRetries = 3
	}
	if config.Retry.BaseDelay == 0 {
		config.Retry.BaseDelay = 1 * time.Second
	}
	if config.Retry.MaxDelay == 0 {
		config.Retry.MaxDelay = 30 * time.Second
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}
