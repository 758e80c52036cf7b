// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// BrowserConfig defines browser automation configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	ExecPath       string        `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitForElement string        `yaml:"wait_for_element,omitempty" json:"wait_for_element,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
}

// DefaultBrowserConfig returns default browser configuration. The history
// page needs a signed-in profile, so the browser is visible by default.
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       false,
		Timeout:        60 * time.Second,
		ViewportWidth:  1280,
		ViewportHeight: 900,
		WaitDelay:      2 * time.Second,
		DisableImages:  true, // Faster loading
	}
}

// BrowserClient interface defines browser automation operations
type BrowserClient interface {
	// Navigate to a URL and wait for page load
	Navigate(ctx context.Context, url string) error

	// GetHTML returns the current page HTML
	GetHTML(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript expression and decodes its result into res
	Evaluate(ctx context.Context, expr string, res interface{}) error

	// Close closes the browser
	Close() error
}

// BindingHandler receives runtime binding calls from the page.
type BindingHandler func(name, payload string) bool

// BrowserStats contains browser automation statistics
type BrowserStats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	JavaScriptErrors int           `json:"javascript_errors"`
	BindingCalls     int           `json:"binding_calls"`
}
