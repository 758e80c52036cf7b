// cmd/activityscrapexter/browser.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/ActivityScrapexter/internal/browser"
	"github.com/valpere/ActivityScrapexter/internal/config"
	"github.com/valpere/ActivityScrapexter/internal/errors"
	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/interceptor"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/payload"
	"github.com/valpere/ActivityScrapexter/internal/session"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// browserSession is an open history page with its interceptor and controller.
type browserSession struct {
	client     *browser.ChromeClient
	page       *browser.HostPage
	port       *interceptor.Port
	controller *session.Controller
	consumed   chan struct{}
}

// openSession starts the browser, installs the interceptor before the first
// navigation so the initial history response is captured, and starts
// consuming payloads.
func openSession(ctx context.Context, cfg *config.Config, loc *time.Location, metrics *monitoring.MetricsManager, svc *errors.Service, logger utils.Logger) (*browserSession, error) {
	client, err := browser.NewChromeClient(ctx, &cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("browser start failed: %w", err)
	}

	port := interceptor.NewPort()
	forwarder := interceptor.NewForwarder(cfg.Interceptor.Binding, port, logger)
	script, err := interceptor.Script(cfg.Interceptor.EndpointPattern, forwarder.Binding())
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := client.InstallInterceptor(ctx, forwarder.Binding(), script, forwarder.HandleBinding); err != nil {
		client.Close()
		return nil, fmt.Errorf("browser %w", err)
	}

	err = svc.ExecuteWithRetry(ctx, "navigate", func(ctx context.Context) error {
		return client.Navigate(ctx, cfg.Target.URL)
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("navigation to %s failed: %w", cfg.Target.URL, err)
	}

	page := browser.NewHostPage(client, cfg.Selectors)
	controller := session.New(page, port, session.Options{
		Parser: payload.NewParser(payload.Options{
			MinLength: cfg.Payload.MinLength,
			Marker:    cfg.Payload.Marker,
			Logger:    logger,
		}),
		Chain:    extract.DefaultChain(cfg.Selectors),
		Scroll:   cfg.Scroll,
		Location: loc,
		Metrics:  metrics,
		Logger:   logger,
	})

	bs := &browserSession{
		client:     client,
		page:       page,
		port:       port,
		controller: controller,
		consumed:   make(chan struct{}),
	}
	go func() {
		defer close(bs.consumed)
		if err := controller.Consume(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("payload consumer stopped: %v", err)
		}
	}()

	return bs, nil
}

// apply updates selectors and scroll timing for the next scroll session.
func (bs *browserSession) apply(cfg *config.Config) {
	bs.page.SetSelectors(cfg.Selectors)
	bs.controller.SetChain(extract.DefaultChain(cfg.Selectors))
	bs.controller.SetScrollConfig(cfg.Scroll)
}

// healthCheck reports the browser tab as a critical dependency.
func (bs *browserSession) healthCheck() monitoring.HealthCheck {
	return monitoring.HealthCheck{
		Name:     "browser",
		Critical: true,
		Check: func(context.Context) monitoring.HealthCheckResult {
			select {
			case <-bs.client.Done():
				return monitoring.HealthCheckResult{Status: monitoring.HealthStatusUnhealthy, Message: "browser tab closed"}
			default:
			}
			stats := bs.client.GetStats()
			return monitoring.HealthCheckResult{
				Status: monitoring.HealthStatusHealthy,
				Metadata: map[string]interface{}{
					"pages_loaded":  stats.PagesLoaded,
					"binding_calls": stats.BindingCalls,
					"errors":        stats.Errors,
				},
			}
		},
	}
}

func (bs *browserSession) Close() error {
	bs.controller.Stop()
	bs.port.Close()
	<-bs.consumed
	return bs.client.Close()
}
