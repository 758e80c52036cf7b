// internal/errors/service.go - Error recovery and user-facing error reporting
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Service retries browser operations and turns failures into CLI messages
type Service struct {
	retryConfig     RetryConfig
	showTechnical   bool
	logger          utils.Logger
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryConfig returns the standard retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      30 * time.Second,
	}
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops hammering a page that keeps failing
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	mu              sync.Mutex
}

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// ErrCircuitOpen is returned while an operation's breaker is open.
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// NewService creates a new error recovery service
func NewService(config RetryConfig, logger utils.Logger) *Service {
	defaults := DefaultRetryConfig()
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	return &Service{
		retryConfig:     config,
		logger:          logger.WithField("component", "recovery"),
		circuitBreakers: make(map[string]*CircuitBreaker),
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.showTechnical = verbose
	return s
}

// ExecuteWithRetry runs operation until it succeeds, fails permanently, or
// ctx is done. Only transient errors are retried.
func (s *Service) ExecuteWithRetry(ctx context.Context, operationName string, operation func(ctx context.Context) error) error {
	breaker := s.getOrCreateCircuitBreaker(operationName)
	if !breaker.CanExecute() {
		return fmt.Errorf("%s: %w", operationName, ErrCircuitOpen)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		attempts++
		err := operation(ctx)
		if err == nil {
			breaker.RecordSuccess()
			return nil
		}

		lastErr = err
		breaker.RecordFailure()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.shouldRetry(err, attempt) {
			break
		}

		delay := s.calculateDelay(attempt)
		s.logger.WithFields(map[string]interface{}{
			"operation": operationName,
			"attempt":   attempt + 1,
			"delay":     delay.String(),
		}).Warnf("retrying after error: %v", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// getOrCreateCircuitBreaker gets or creates a circuit breaker for an operation
func (s *Service) getOrCreateCircuitBreaker(operationName string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, exists := s.circuitBreakers[operationName]; exists {
		return cb
	}

	cb := &CircuitBreaker{
		name:         operationName,
		maxFailures:  5,
		resetTimeout: 60 * time.Second,
		state:        CircuitClosed,
	}
	s.circuitBreakers[operationName] = cb
	return cb
}

// ConfigureCircuitBreaker configures circuit breaker for specific operation
func (s *Service) ConfigureCircuitBreaker(operationName string, config CircuitBreakerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.circuitBreakers[operationName] = &CircuitBreaker{
		name:         operationName,
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		state:        CircuitClosed,
	}
}

// ResetCircuitBreaker manually resets a circuit breaker
func (s *Service) ResetCircuitBreaker(operationName string) error {
	s.mu.RLock()
	cb, exists := s.circuitBreakers[operationName]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("circuit breaker not found for operation: %s", operationName)
	}
	cb.RecordSuccess()
	return nil
}

// CircuitState reports the breaker state of an operation.
func (s *Service) CircuitState(operationName string) CircuitBreakerState {
	s.mu.RLock()
	cb, exists := s.circuitBreakers[operationName]
	s.mu.RUnlock()
	if !exists {
		return CircuitClosed
	}
	return cb.GetState()
}

var retryablePatterns = []string{
	"timeout", "timed out", "deadline exceeded",
	"connection refused", "connection reset", "no such host",
	"net::err_", "websocket", "target closed",
	"502", "503", "504", "429",
	"temporary", "service unavailable",
}

// shouldRetry determines if error is retryable
func (s *Service) shouldRetry(err error, attempt int) bool {
	if attempt >= s.retryConfig.MaxRetries {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsTransient(err)
}

// IsTransient reports whether err looks like a failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var temporary interface{ Temporary() bool }
	if stderrors.As(err, &temporary) {
		return temporary.Temporary()
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * math.Pow(s.retryConfig.BackoffFactor, float64(attempt)))
	if delay > s.retryConfig.MaxDelay || delay <= 0 {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "executable file not found") || strings.Contains(errStr, "exec: \"google-chrome"):
		return "Browser Not Found",
			"Could not start Chrome or Chromium.",
			[]string{
				"Install Google Chrome or Chromium",
				"Set browser.exec_path in the configuration",
			}

	case strings.Contains(errStr, "user data directory is already in use") || strings.Contains(errStr, "singletonlock"):
		return "Browser Profile Locked",
			"Another browser is using the configured profile directory.",
			[]string{
				"Close the browser that owns the profile",
				"Point browser.user_data_dir at a copy of the profile",
			}

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return "Page Timeout",
			"The activity page did not respond in time.",
			[]string{
				"Check your internet connection",
				"Increase browser.timeout in the configuration",
			}

	case strings.Contains(errStr, "net::err_") || strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection refused"):
		return "Page Unreachable",
			"The activity page could not be loaded.",
			[]string{
				"Open the target URL in a regular browser",
				"Check proxy and firewall settings",
			}

	case strings.Contains(errStr, "yaml") || strings.Contains(errStr, "configuration"):
		return "Configuration Error",
			"The configuration file is invalid.",
			[]string{
				"Run the validate command for details",
				"Check YAML indentation (use spaces, not tabs)",
			}

	case strings.Contains(errStr, "date") && strings.Contains(errStr, "invalid"):
		return "Invalid Date Range",
			"The requested date range could not be parsed.",
			[]string{
				"Use the YYYY-MM-DD format",
				"Make sure the end date is not before the start date",
			}

	case strings.Contains(errStr, "output") || strings.Contains(errStr, "write"):
		return "Output Error",
			"The collected history could not be saved.",
			[]string{
				"Check that the output directory is writable",
				"Choose a supported output format",
			}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again",
			"Run with --verbose for technical details",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if stderrors.Is(err, context.Canceled) {
		return 130
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return 2 // Configuration error
	case strings.Contains(errStr, "browser") || strings.Contains(errStr, "navigation") ||
		strings.Contains(errStr, "timeout") || strings.Contains(errStr, "net::err_"):
		return 3 // Browser or network error
	case strings.Contains(errStr, "parse") || strings.Contains(errStr, "selector"):
		return 4 // Parsing error
	case strings.Contains(errStr, "output") || strings.Contains(errStr, "write"):
		return 5 // Output error
	case strings.Contains(errStr, "invalid"):
		return 6 // Validation error
	default:
		return 1 // General error
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", title, message)

	if s.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, suggestion := range suggestions {
			fmt.Fprintf(&b, "  - %s\n", suggestion)
		}
	}

	return b.String()
}

// CircuitBreaker methods

// CanExecute checks if circuit breaker allows execution
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records failed execution
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.state == CircuitHalfOpen || (cb.maxFailures > 0 && cb.failures >= cb.maxFailures) {
		cb.state = CircuitOpen
		cb.nextAttemptTime = cb.lastFailureTime.Add(cb.resetTimeout)
	}
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
