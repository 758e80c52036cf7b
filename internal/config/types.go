// internal/config/types.go

// Package config provides configuration types and structures for ActivityScrapexter.
// It defines the target history page, browser settings, interception and
// parsing parameters, page selectors, scroll timing, output, and the control API.
package config

import (
	"time"

	"github.com/valpere/ActivityScrapexter/internal/browser"
	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
)

// DefaultTargetURL is the Gemini Apps activity page.
const DefaultTargetURL = "https://myactivity.google.com/product/gemini"

// Config represents the main configuration of a scraping session.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Target defines the history page to open
	Target TargetConfig `yaml:"target" json:"target"`

	// Browser controls the Chromium instance
	Browser browser.BrowserConfig `yaml:"browser" json:"browser"`

	// Interceptor selects the history API requests to capture
	Interceptor InterceptorConfig `yaml:"interceptor" json:"interceptor"`

	// Payload tunes the response parser
	Payload PayloadConfig `yaml:"payload" json:"payload"`

	// Selectors locate entries on the page
	Selectors extract.Selectors `yaml:"selectors" json:"selectors"`

	// Scroll controls the polling loop
	Scroll scroll.Config `yaml:"scroll" json:"scroll"`

	// Range limits the collected dates
	Range RangeConfig `yaml:"range" json:"range"`

	// Timezone used to render timestamps (IANA name, empty for local)
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// Output configuration
	Output OutputConfig `yaml:"output" json:"output"`

	// Server configures the control API
	Server ServerConfig `yaml:"server" json:"server"`

	// Metrics configures Prometheus metrics
	Metrics monitoring.MetricsConfig `yaml:"metrics" json:"metrics"`

	// Retry controls navigation retries
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// TargetConfig defines the page to open.
type TargetConfig struct {
	URL string `yaml:"url" json:"url"`
}

// InterceptorConfig defines which responses are captured.
type InterceptorConfig struct {
	EndpointPattern string `yaml:"endpoint_pattern" json:"endpoint_pattern"`
	Binding         string `yaml:"binding" json:"binding"`
}

// PayloadConfig tunes the payload parser.
type PayloadConfig struct {
	MinLength int    `yaml:"min_length" json:"min_length"`
	Marker    string `yaml:"marker" json:"marker"`
}

// RangeConfig holds YYYY-MM-DD bounds; empty means unbounded.
type RangeConfig struct {
	Start string `yaml:"start,omitempty" json:"start,omitempty"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`
}

// OutputConfig defines export settings.
type OutputConfig struct {
	// Format is one of json, csv, xlsx, yaml, sqlite
	Format string `yaml:"format" json:"format"`
	// File is the destination; empty derives a name from the range
	File string `yaml:"file,omitempty" json:"file,omitempty"`
	// SheetName is used by the xlsx writer
	SheetName string `yaml:"sheet_name,omitempty" json:"sheet_name,omitempty"`
	// Table is used by the sqlite writer
	Table string `yaml:"table,omitempty" json:"table,omitempty"`
}

// ServerConfig configures the control API.
type ServerConfig struct {
	Listen    string  `yaml:"listen" json:"listen"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// RetryConfig controls retries of failed navigation.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay" json:"max_delay"`
}
