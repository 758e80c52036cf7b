// internal/session/controller.go

// Package session wires interception, parsing, the pool, the scroll driver
// and the extraction chain into start/stop/extract operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/interceptor"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/payload"
	"github.com/valpere/ActivityScrapexter/internal/pool"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Page is the host page: scrollable and readable as a DOM snapshot.
type Page interface {
	scroll.Page
	Snapshot(ctx context.Context) (*goquery.Document, error)
}

// Result is the outcome of one extraction.
type Result struct {
	Method    extract.Method         `json:"method"`
	Scraped   int                    `json:"scraped"`
	Records   []record.DisplayRecord `json:"records"`
	Status    string                 `json:"status"`
	Warning   string                 `json:"warning,omitempty"`
	Reason    scroll.Reason          `json:"reason,omitempty"`
	Range     string                 `json:"range"`
	Finished  time.Time              `json:"finished"`
	DateRange record.DateRange       `json:"-"`
}

// Options configures a Controller. Zero values get working defaults.
type Options struct {
	Parser   *payload.Parser
	Pool     *pool.Pool
	Chain    extract.Chain
	Scroll   scroll.Config
	Location *time.Location
	Metrics  *monitoring.MetricsManager
	Logger   utils.Logger
}

// Controller owns the pool for one browser session.
type Controller struct {
	page    Page
	port    *interceptor.Port
	parser  *payload.Parser
	pool    *pool.Pool
	driver  *scroll.Driver
	metrics *monitoring.MetricsManager
	logger  utils.Logger
	loc     *time.Location

	mu    sync.RWMutex
	chain extract.Chain
	last  *Result
}

// New creates a controller reading payloads from port.
func New(page Page, port *interceptor.Port, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Parser == nil {
		opts.Parser = payload.NewParser(payload.Options{Logger: opts.Logger})
	}
	if opts.Pool == nil {
		opts.Pool = pool.New()
	}
	if len(opts.Chain) == 0 {
		opts.Chain = extract.DefaultChain(extract.DefaultSelectors())
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	}

	return &Controller{
		page:    page,
		port:    port,
		parser:  opts.Parser,
		pool:    opts.Pool,
		driver:  scroll.NewDriver(page, opts.Scroll, opts.Logger),
		metrics: opts.Metrics,
		logger:  opts.Logger.WithField("component", "session"),
		loc:     opts.Location,
		chain:   opts.Chain,
	}
}

// Consume moves payloads from the port into the pool until the port is
// closed or ctx is done.
func (c *Controller) Consume(ctx context.Context) error {
	for {
		msg, err := c.port.Receive(ctx)
		if err != nil {
			if errors.Is(err, interceptor.ErrPortClosed) {
				return nil
			}
			return err
		}
		c.handle(msg)
	}
}

func (c *Controller) handle(msg interceptor.Message) {
	switch msg.Kind {
	case interceptor.KindReady:
		c.logger.WithField("url", msg.URL).Debug("interceptor installed")
	case interceptor.KindPayload:
		records, failures := c.parser.ParseAll(msg.Payload)
		c.metrics.RecordPayload(msg.Source, len(records), failures)
		c.ingest(records, msg.Source)
	}
}

func (c *Controller) ingest(records []record.Record, source string) int {
	if len(records) == 0 {
		return 0
	}
	inserted := c.pool.AddBatch(records)
	size := c.pool.Len()
	c.metrics.RecordInserted(inserted, size)
	c.logger.WithFields(map[string]interface{}{
		"source":   source,
		"parsed":   len(records),
		"inserted": inserted,
		"pool":     size,
	}).Debug("payload ingested")
	return inserted
}

// Start begins a scroll session for rng. While a session is scrolling it
// requests cancellation instead and returns false. The channel receives the
// extraction result at most once and is closed when the session ends; a
// session aborted by ctx closes it without a result.
func (c *Controller) Start(ctx context.Context, rng record.DateRange) (<-chan *Result, bool) {
	results := make(chan *Result, 1)
	target := rng.TargetKey()

	done, started := c.driver.StartSession(ctx, target, func(ctx context.Context, out scroll.Outcome) {
		c.metrics.RecordScrollFinished(string(out.Reason), out.Ticks)
		c.logger.WithFields(map[string]interface{}{
			"reason":   string(out.Reason),
			"ticks":    out.Ticks,
			"last_key": out.LastKey,
		}).Info("scroll finished, extracting")

		res := c.Extract(ctx, rng)
		res.Reason = out.Reason
		res.Status = fmt.Sprintf("%s; %s", out.Reason, res.Status)
		c.setLast(res)
		results <- res
	})
	if !started {
		return nil, false
	}
	go func() {
		<-done
		close(results)
	}()

	c.metrics.RecordScrollStart()
	c.logger.WithFields(map[string]interface{}{
		"range":  rng.String(),
		"target": target,
	}).Info("scroll session started")
	return results, true
}

// Stop requests cancellation of the running session.
func (c *Controller) Stop() {
	c.driver.Cancel()
}

// Wait blocks until the current session has finished.
func (c *Controller) Wait(ctx context.Context) error {
	return c.driver.Wait(ctx)
}

// State reports the scroll driver state.
func (c *Controller) State() scroll.State {
	return c.driver.State()
}

// Clear empties the pool. It is the only way records leave it.
func (c *Controller) Clear() {
	c.pool.Clear()
	c.metrics.RecordInserted(0, 0)
	c.logger.Info("pool cleared")
}

// PoolSize returns the number of unique records collected so far.
func (c *Controller) PoolSize() int {
	return c.pool.Len()
}

// SetScrollConfig changes scroll timing for the next session.
func (c *Controller) SetScrollConfig(cfg scroll.Config) {
	c.driver.SetConfig(cfg)
}

// SetChain replaces the extraction strategies.
func (c *Controller) SetChain(chain extract.Chain) {
	if len(chain) == 0 {
		return
	}
	c.mu.Lock()
	c.chain = chain
	c.mu.Unlock()
}

// LastResult returns the most recent extraction result, or nil.
func (c *Controller) LastResult() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Controller) setLast(res *Result) {
	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
}

// Extract snapshots the page, folds inline page data into the pool, runs the
// strategy chain and filters the result by rng.
func (c *Controller) Extract(ctx context.Context, rng record.DateRange) *Result {
	start := time.Now()

	doc, err := c.page.Snapshot(ctx)
	if err != nil {
		c.logger.Warnf("page snapshot failed, continuing without DOM: %v", err)
		doc = nil
	}
	if doc != nil {
		c.ingest(c.parser.ParseDocument(doc), "inline")
	}

	c.mu.RLock()
	chain := c.chain
	c.mu.RUnlock()

	res := &Result{Range: rng.String(), DateRange: rng, Finished: time.Now()}
	out, ok := chain.Run(extract.Input{
		Doc:      doc,
		Records:  c.pool.Records(),
		Location: c.loc,
	})
	if !ok {
		res.Status = "no extraction strategy produced a result"
		c.logger.Warn(res.Status)
		return res
	}

	filtered := record.Filter(out.Records, rng, c.loc)
	record.SortDisplay(filtered)

	res.Method = out.Method
	res.Scraped = len(out.Records)
	res.Records = filtered
	res.Warning = out.Warning
	res.Status = StatusMessage(out.Method, res.Scraped, len(filtered))

	c.metrics.RecordExtraction(string(out.Method), len(filtered), time.Since(start))
	log := c.logger.WithFields(map[string]interface{}{
		"method":   string(out.Method),
		"scraped":  res.Scraped,
		"in_range": len(filtered),
	})
	if res.Warning != "" {
		log.Warn(res.Warning)
	}
	log.Info("extraction complete")
	return res
}

// StatusMessage describes an extraction for the user. An empty scrape and an
// empty date range produce distinct messages.
func StatusMessage(method extract.Method, scraped, inRange int) string {
	switch {
	case scraped == 0:
		return fmt.Sprintf("no records scraped (method: %s)", method)
	case inRange == 0:
		return fmt.Sprintf("scraped %d records but none in the selected date range (method: %s)", scraped, method)
	default:
		return fmt.Sprintf("extracted %d records (method: %s)", inRange, method)
	}
}
