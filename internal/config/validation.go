// internal/config/validation.go - Validation with detailed error messages
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) addError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

// SupportedOutputFormats lists the formats the output layer can write.
var SupportedOutputFormats = []string{"json", "csv", "xlsx", "yaml", "sqlite"}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate checks the configuration and returns every problem in one error.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if !result.Valid {
		return formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails provides detailed validation results
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateTarget(result)
	c.validateBrowser(result)
	c.validatePayload(result)
	c.validateSelectors(result)
	c.validateScroll(result)
	c.validateRange(result)
	c.validateOutput(result)
	c.validateServer(result)
	c.validateRetry(result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateTarget(result *ValidationResult) {
	if c.Target.URL == "" {
		result.addError("target.url", "", "Target URL is required")
		return
	}

	parsedURL, err := url.Parse(c.Target.URL)
	if err != nil {
		result.addError("target.url", c.Target.URL, fmt.Sprintf("Invalid URL format: %s", err.Error()))
		return
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		result.addError("target.url", c.Target.URL, "URL must include protocol (http:// or https://)")
	}
	if parsedURL.Host == "" {
		result.addError("target.url", c.Target.URL, "URL must include hostname")
	}
	if parsedURL.Scheme == "http" {
		result.Warnings = append(result.Warnings, "Using HTTP instead of HTTPS may expose session cookies")
	}

	if c.Interceptor.EndpointPattern == "" {
		result.addError("interceptor.endpoint_pattern", "", "Endpoint pattern is required")
	}
	if c.Interceptor.Binding == "" {
		result.addError("interceptor.binding", "", "Binding name is required")
	}
}

func (c *Config) validateBrowser(result *ValidationResult) {
	if c.Browser.Timeout < 0 {
		result.addError("browser.timeout", c.Browser.Timeout.String(), "Timeout cannot be negative")
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		result.addError("browser.viewport", fmt.Sprintf("%dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight),
			"Viewport dimensions cannot be negative")
	}
	if c.Browser.Headless && c.Browser.UserDataDir == "" {
		result.Warnings = append(result.Warnings,
			"Headless browser without user_data_dir will not be signed in")
	}
}

func (c *Config) validatePayload(result *ValidationResult) {
	if c.Payload.MinLength < 0 {
		result.addError("payload.min_length", fmt.Sprintf("%d", c.Payload.MinLength), "Minimum length cannot be negative")
	}
	if strings.TrimSpace(c.Payload.Marker) == "" {
		result.addError("payload.marker", c.Payload.Marker, "Marker is required")
	}
}

func (c *Config) validateSelectors(result *ValidationResult) {
	selectors := map[string]string{
		"selectors.container":      c.Selectors.Container,
		"selectors.date_header":    c.Selectors.DateHeader,
		"selectors.entry":          c.Selectors.Entry,
		"selectors.prompt":         c.Selectors.Prompt,
		"selectors.time":           c.Selectors.Time,
		"selectors.delete_control": c.Selectors.DeleteControl,
		"selectors.end_marker":     c.Selectors.EndMarker,
	}
	for field, sel := range selectors {
		if err := validateCSSSelector(sel); err != nil {
			result.addError(field, sel, fmt.Sprintf("Invalid CSS selector: %s", err.Error()))
		}
	}
	if c.Selectors.DateAttribute == "" {
		result.addError("selectors.date_attribute", "", "Date attribute is required")
	}
}

func (c *Config) validateScroll(result *ValidationResult) {
	if c.Scroll.Interval <= 0 {
		result.addError("scroll.interval", c.Scroll.Interval.String(), "Scroll interval must be positive")
	} else if c.Scroll.Interval < 100*time.Millisecond {
		result.Warnings = append(result.Warnings,
			"Scroll interval below 100ms may outrun the page's history requests")
	}
	if c.Scroll.SettleDelay < 0 {
		result.addError("scroll.settle_delay", c.Scroll.SettleDelay.String(), "Settle delay cannot be negative")
	}
	if c.Scroll.MaxTicks <= 0 {
		result.addError("scroll.max_ticks", fmt.Sprintf("%d", c.Scroll.MaxTicks), "Max ticks must be positive")
	}
}

func (c *Config) validateRange(result *ValidationResult) {
	loc, err := c.Location()
	if err != nil {
		result.addError("timezone", c.Timezone, err.Error())
		loc = time.Local
	}
	if _, err := c.DateRange(loc); err != nil {
		result.addError("range", c.Range.Start+".."+c.Range.End, err.Error())
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	format := strings.ToLower(c.Output.Format)
	if !contains(SupportedOutputFormats, format) {
		result.addError("output.format", c.Output.Format,
			fmt.Sprintf("Unsupported output format (supported: %s)", strings.Join(SupportedOutputFormats, ", ")))
	}
	if format == "sqlite" && !tableNamePattern.MatchString(c.Output.Table) {
		result.addError("output.table", c.Output.Table, "Table name must be a plain SQL identifier")
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.RateLimit < 0 {
		result.addError("server.rate_limit", fmt.Sprintf("%g", c.Server.RateLimit), "Rate limit cannot be negative")
	}
	if c.Server.Burst < 0 {
		result.addError("server.burst", fmt.Sprintf("%d", c.Server.Burst), "Burst cannot be negative")
	}
	if strings.HasPrefix(c.Server.Listen, "0.0.0.0") || strings.HasPrefix(c.Server.Listen, ":") {
		result.Warnings = append(result.Warnings,
			"Control API listens on all interfaces; collected history will be reachable from the network")
	}
}

func (c *Config) validateRetry(result *ValidationResult) {
	if c.Retry.MaxRetries < 0 {
		result.addError("retry.max_retries", fmt.Sprintf("%d", c.Retry.MaxRetries), "Max retries cannot be negative")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		result.addError("retry.base_delay", c.Retry.BaseDelay.String(), "Base delay cannot exceed max delay")
	}
}

// validateCSSSelector compiles selector to catch syntax errors early
func validateCSSSelector(selector string) error {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return fmt.Errorf("empty selector")
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return err
	}
	return nil
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("Configuration validation failed:\n")

	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		errorMsg.WriteString("\n")
	}

	return fmt.Errorf("%s", errorMsg.String())
}

// GetValidationSuggestions provides actionable suggestions for fixing validation errors
func GetValidationSuggestions(result *ValidationResult) []string {
	suggestions := make([]string, 0)

	var hasURL, hasSelector, hasRange bool
	for _, err := range result.Errors {
		switch {
		case strings.Contains(err.Field, "url"):
			hasURL = true
		case strings.HasPrefix(err.Field, "selectors"):
			hasSelector = true
		case err.Field == "range" || err.Field == "timezone":
			hasRange = true
		}
	}

	if hasURL {
		suggestions = append(suggestions,
			"Ensure the target URL includes https://",
			"Open the URL in a signed-in browser first")
	}
	if hasSelector {
		suggestions = append(suggestions,
			"Test CSS selectors using browser developer tools",
			"Remove the selector to fall back to the built-in default")
	}
	if hasRange {
		suggestions = append(suggestions,
			"Dates use the YYYY-MM-DD format",
			"Timezones use IANA names such as Europe/Kyiv")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions,
			"Review the configuration file for syntax errors",
			"Check YAML indentation and formatting")
	}

	return suggestions
}

// Helper function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
