// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// ChromeClient implements BrowserClient using chromedp
type ChromeClient struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *BrowserConfig

	statsMu           sync.Mutex
	stats             BrowserStats
	navigationSuccess bool
}

// NewChromeClient starts a browser. It lives until Close or until parent is done.
func NewChromeClient(parent context.Context, config *BrowserConfig) (*ChromeClient, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	// Set up Chrome options
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
	}

	if err := client.initialize(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	return client, nil
}

// initialize starts the browser and applies the viewport.
func (c *ChromeClient) initialize() error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(c.config.ViewportWidth), int64(c.config.ViewportHeight)),
	}

	if c.config.ViewportWidth > 0 && c.config.ViewportWidth < 768 {
		tasks = append(tasks, chromedp.Emulate(device.IPhone8))
	}

	return chromedp.Run(c.ctx, tasks...)
}

// run executes actions on the browser tab, stopping early when ctx is done.
func (c *ChromeClient) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// InstallInterceptor registers the runtime binding, injects script into every
// new document and routes binding calls to handler. Call it before Navigate.
func (c *ChromeClient) InstallInterceptor(ctx context.Context, binding, script string, handler BindingHandler) error {
	chromedp.ListenTarget(c.ctx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok {
			c.statsMu.Lock()
			c.stats.BindingCalls++
			c.statsMu.Unlock()
			handler(e.Name, e.Payload)
		}
	})

	err := c.run(ctx, c.config.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := runtime.AddBinding(binding).Do(ctx); err != nil {
			return fmt.Errorf("add binding %s: %w", binding, err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			return fmt.Errorf("add page script: %w", err)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to install interceptor: %w", err)
	}
	return nil
}

// Navigate navigates to a URL and waits for page load
func (c *ChromeClient) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.config.WaitForElement))
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	err := c.run(ctx, c.config.Timeout, tasks...)
	loadTime := time.Since(start)

	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	if err != nil {
		c.stats.Errors++
		c.navigationSuccess = false
		return fmt.Errorf("navigation failed: %w", err)
	}

	c.navigationSuccess = true
	c.stats.PagesLoaded++
	if c.stats.PagesLoaded == 1 {
		c.stats.AverageLoadTime = loadTime
	} else {
		c.stats.AverageLoadTime = (c.stats.AverageLoadTime + loadTime) / 2
	}

	return nil
}

// GetHTML returns the current page HTML
func (c *ChromeClient) GetHTML(ctx context.Context) (string, error) {
	c.statsMu.Lock()
	navSuccess := c.navigationSuccess
	c.statsMu.Unlock()

	if !navSuccess {
		return "", fmt.Errorf("cannot extract HTML: navigation has not completed successfully")
	}

	var html string
	if err := c.run(ctx, c.config.Timeout, chromedp.OuterHTML("html", &html)); err != nil {
		c.countError(false)
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Evaluate runs a JavaScript expression
func (c *ChromeClient) Evaluate(ctx context.Context, expr string, res interface{}) error {
	if err := c.run(ctx, c.config.Timeout, chromedp.Evaluate(expr, res)); err != nil {
		c.countError(true)
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

func (c *ChromeClient) countError(script bool) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if script {
		c.stats.JavaScriptErrors++
	} else {
		c.stats.Errors++
	}
}

// Done is closed when the browser tab goes away.
func (c *ChromeClient) Done() <-chan struct{} {
	return c.ctx.Done()
}

// GetStats returns a copy of browser statistics
func (c *ChromeClient) GetStats() BrowserStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// Close closes the browser
func (c *ChromeClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
