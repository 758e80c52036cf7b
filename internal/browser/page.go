// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"

	"github.com/valpere/ActivityScrapexter/internal/extract"
)

// HostPage exposes the history page to the scroll driver and the extractor.
// It only reads the DOM and scrolls; page content is never modified.
type HostPage struct {
	client BrowserClient

	mu        sync.RWMutex
	selectors extract.Selectors
}

// NewHostPage wraps client using sel to find page landmarks.
func NewHostPage(client BrowserClient, sel extract.Selectors) *HostPage {
	return &HostPage{
		client:    client,
		selectors: sel.Merge(extract.DefaultSelectors()),
	}
}

// SetSelectors replaces the page landmarks used by later queries.
func (p *HostPage) SetSelectors(sel extract.Selectors) {
	p.mu.Lock()
	p.selectors = sel.Merge(extract.DefaultSelectors())
	p.mu.Unlock()
}

func (p *HostPage) currentSelectors() extract.Selectors {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectors
}

// EndMarkerVisible reports whether the end-of-list marker is rendered.
func (p *HostPage) EndMarkerVisible(ctx context.Context) (bool, error) {
	var visible bool
	if err := p.client.Evaluate(ctx, endMarkerScript(p.currentSelectors().EndMarker), &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// LastDateKey returns the date attribute of the last rendered day group.
func (p *HostPage) LastDateKey(ctx context.Context) (string, error) {
	var key string
	sel := p.currentSelectors()
	script := lastDateKeyScript(sel.DateHeader, sel.DateAttribute)
	if err := p.client.Evaluate(ctx, script, &key); err != nil {
		return "", err
	}
	return strings.TrimSpace(key), nil
}

// ScrollToBottom scrolls the window to the current end of the document.
func (p *HostPage) ScrollToBottom(ctx context.Context) error {
	var ignored interface{}
	return p.client.Evaluate(ctx, scrollScript, &ignored)
}

// Snapshot parses the current page HTML.
func (p *HostPage) Snapshot(ctx context.Context) (*goquery.Document, error) {
	html, err := p.client.GetHTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}
	return doc, nil
}

const scrollScript = `(() => { window.scrollTo(0, document.body.scrollHeight); return true; })()`

func jsString(s string) string {
	quoted, err := sonic.MarshalString(s)
	if err != nil {
		return `""`
	}
	return quoted
}

func endMarkerScript(selector string) string {
	return `(() => {
  const el = document.querySelector(` + jsString(selector) + `);
  return !!el && el.offsetParent !== null;
})()`
}

func lastDateKeyScript(headerSelector, attribute string) string {
	attr := jsString(attribute)
	return `(() => {
  const headers = document.querySelectorAll(` + jsString(headerSelector) + `);
  for (let i = headers.length - 1; i >= 0; i--) {
    const group = headers[i].closest('[' + ` + attr + ` + ']');
    if (group) {
      return group.getAttribute(` + attr + `) || '';
    }
  }
  return '';
})()`
}
