// internal/scroll/driver.go

// Package scroll drives the host page to load older history entries until
// the list ends, a date boundary is reached, or the user stops it.
package scroll

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Page is the host page as seen by the driver.
type Page interface {
	// EndMarkerVisible reports whether the end-of-list marker is rendered and visible.
	EndMarkerVisible(ctx context.Context) (bool, error)
	// LastDateKey returns the YYYYMMDD key of the oldest rendered day group,
	// or "" when none is rendered yet.
	LastDateKey(ctx context.Context) (string, error)
	// ScrollToBottom scrolls the page to its current end.
	ScrollToBottom(ctx context.Context) error
}

// State of the driver.
type State int32

const (
	StateIdle State = iota
	StateScrolling
	StateFinishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScrolling:
		return "scrolling"
	case StateFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Reason explains why a session stopped scrolling.
type Reason string

const (
	ReasonUserStopped   Reason = "user stopped"
	ReasonReachedEnd    Reason = "reached end"
	ReasonReachedTarget Reason = "reached target date"
	ReasonTickLimit     Reason = "tick limit"
)

// Outcome describes a finished scroll session.
type Outcome struct {
	Reason  Reason
	Ticks   int
	LastKey string
}

// FinishFunc runs once per session after the settle delay.
type FinishFunc func(ctx context.Context, out Outcome)

// Config holds driver timing.
type Config struct {
	Interval    time.Duration `yaml:"interval" json:"interval"`
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`
	MaxTicks    int           `yaml:"max_ticks" json:"max_ticks"`
}

const (
	DefaultInterval    = 800 * time.Millisecond
	DefaultSettleDelay = 1500 * time.Millisecond
	DefaultMaxTicks    = 2000
)

// DefaultConfig returns the standard timing.
func DefaultConfig() Config {
	return Config{
		Interval:    DefaultInterval,
		SettleDelay: DefaultSettleDelay,
		MaxTicks:    DefaultMaxTicks,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.MaxTicks <= 0 {
		c.MaxTicks = DefaultMaxTicks
	}
	return c
}

// Driver runs at most one scroll session at a time.
type Driver struct {
	page   Page
	logger utils.Logger

	mu     sync.Mutex
	cfg    Config
	state  State
	cancel atomic.Bool
	done   chan struct{}
}

// NewDriver creates an idle driver.
func NewDriver(page Page, cfg Config, logger utils.Logger) *Driver {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Driver{
		page:   page,
		cfg:    cfg.withDefaults(),
		logger: logger.WithField("component", "scroll"),
	}
}

// SetConfig replaces the timing used by the next session.
func (d *Driver) SetConfig(cfg Config) {
	d.mu.Lock()
	d.cfg = cfg.withDefaults()
	d.mu.Unlock()
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins a session that stops at targetKey (YYYYMMDD). Called while a
// session is scrolling it requests cancellation instead. It returns true only
// when a new session was started.
func (d *Driver) Start(ctx context.Context, targetKey string, onFinish FinishFunc) bool {
	_, started := d.StartSession(ctx, targetKey, onFinish)
	return started
}

// StartSession is Start that also returns a channel closed when the new
// session returns to idle, whether it finished or was aborted.
func (d *Driver) StartSession(ctx context.Context, targetKey string, onFinish FinishFunc) (<-chan struct{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateScrolling:
		d.cancel.Store(true)
		d.logger.Info("scroll session already running, requesting stop")
		return nil, false
	case StateFinishing:
		return nil, false
	}

	d.state = StateScrolling
	d.cancel.Store(false)
	d.done = make(chan struct{})

	go d.run(ctx, d.cfg, targetKey, onFinish, d.done)
	return d.done, true
}

// Cancel asks a running session to stop at its next tick.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateScrolling {
		d.cancel.Store(true)
	}
}

// Wait blocks until the current session, if any, has returned to idle.
func (d *Driver) Wait(ctx context.Context) error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Driver) run(ctx context.Context, cfg Config, targetKey string, onFinish FinishFunc, done chan struct{}) {
	defer close(done)
	defer d.setState(StateIdle)

	log := d.logger.WithField("target", targetKey)
	log.Info("scroll session started")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	out := Outcome{}
	for {
		select {
		case <-ctx.Done():
			log.Warnf("scroll session aborted: %v", ctx.Err())
			return
		case <-ticker.C:
		}

		out.Ticks++
		if reason, stop := d.tick(ctx, cfg, targetKey, &out); stop {
			out.Reason = reason
			break
		}
	}

	d.setState(StateFinishing)
	log.WithFields(map[string]interface{}{
		"reason": string(out.Reason),
		"ticks":  out.Ticks,
	}).Info("scroll session finishing")

	if cfg.SettleDelay > 0 {
		timer := time.NewTimer(cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warnf("scroll session aborted while settling: %v", ctx.Err())
			return
		case <-timer.C:
		}
	}

	if onFinish != nil {
		onFinish(ctx, out)
	}
}

// tick checks the exit conditions in order and scrolls when none holds.
func (d *Driver) tick(ctx context.Context, cfg Config, targetKey string, out *Outcome) (Reason, bool) {
	if d.cancel.Load() {
		return ReasonUserStopped, true
	}

	visible, err := d.page.EndMarkerVisible(ctx)
	if err != nil {
		d.logger.Debugf("end marker check failed: %v", err)
	} else if visible {
		return ReasonReachedEnd, true
	}

	key, err := d.page.LastDateKey(ctx)
	if err != nil {
		d.logger.Debugf("date key check failed: %v", err)
	} else if key != "" {
		out.LastKey = key
		if keyBefore(key, targetKey) {
			return ReasonReachedTarget, true
		}
	}

	if out.Ticks >= cfg.MaxTicks {
		return ReasonTickLimit, true
	}

	if err := d.page.ScrollToBottom(ctx); err != nil {
		d.logger.Debugf("scroll failed: %v", err)
	}
	return "", false
}

// keyBefore compares YYYYMMDD keys numerically. Keys that are not numbers
// never satisfy the condition.
func keyBefore(key, target string) bool {
	k, err := strconv.Atoi(key)
	if err != nil {
		return false
	}
	t, err := strconv.Atoi(target)
	if err != nil {
		return false
	}
	return k < t
}
