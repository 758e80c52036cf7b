// internal/session/controller_test.go
package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/ActivityScrapexter/internal/extract"
	"github.com/valpere/ActivityScrapexter/internal/interceptor"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
)

// fakePage emits one payload per scroll and shows the end marker on endAt.
type fakePage struct {
	mu       sync.Mutex
	port     *interceptor.Port
	payloads []string
	ticks    int
	endAt    int
	html     string
	snapErr  error
}

func (p *fakePage) EndMarkerVisible(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks++
	return p.endAt > 0 && p.ticks >= p.endAt, nil
}

func (p *fakePage) LastDateKey(context.Context) (string, error) {
	return "", nil
}

func (p *fakePage) ScrollToBottom(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) > 0 {
		p.port.Send(interceptor.Message{Kind: interceptor.KindPayload, Payload: p.payloads[0], Source: "xhr"})
		p.payloads = p.payloads[1:]
	}
	return nil
}

func (p *fakePage) Snapshot(context.Context) (*goquery.Document, error) {
	if p.snapErr != nil {
		return nil, p.snapErr
	}
	html := p.html
	if html == "" {
		html = "<html><body></body></html>"
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func entry(micros int64, text string) string {
	m := strconv.FormatInt(micros, 10)
	return `[\"c_` + m[:6] + `\",[` + m + `,291000000],null,[null,\"` + text + `\"],true,\"Gemini Apps\"]`
}

// payloadBody builds a history response holding the given entries.
func payloadBody(entries ...string) string {
	return `)]}'` + "\n\n1043\n" + `[["wrb.fr","QBqKff","[[` + strings.Join(entries, ",") +
		`],null,\"token\"]",null,null,null,"generic"]]`
}

const base = int64(1704110400) // 2024-01-01 12:00:00 UTC

// twelveRecords spans 2024-01-01 12:00 to 2024-01-02 10:00 in two payloads,
// the second one overlapping the first.
func twelveRecords() []string {
	var entries []string
	for i := int64(0); i < 12; i++ {
		ts := (base + i*7200) * 1_000_000
		entries = append(entries, entry(ts, "prompt "+strconv.FormatInt(i, 10)))
	}
	return []string{
		payloadBody(entries[:8]...),
		payloadBody(entries[4:]...),
	}
}

func newController(t *testing.T, page *fakePage) *Controller {
	t.Helper()
	port := interceptor.NewPort()
	page.port = port
	c := New(page, port, Options{
		Location: time.UTC,
		Scroll:   scroll.Config{Interval: time.Millisecond, SettleDelay: 100 * time.Millisecond, MaxTicks: 100},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Consume(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestEndToEndNetworkSession(t *testing.T) {
	page := &fakePage{endAt: 3, payloads: twelveRecords()}
	c := newController(t, page)

	end, err := time.ParseInLocation(record.DateLayout, "2024-01-02", time.UTC)
	require.NoError(t, err)

	results, ok := c.Start(context.Background(), record.DateRange{End: end})
	require.True(t, ok)

	var res *Result
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	require.NotNil(t, res)

	assert.Equal(t, extract.MethodNetwork, res.Method)
	assert.Equal(t, scroll.ReasonReachedEnd, res.Reason)
	assert.Equal(t, 12, res.Scraped)
	require.Len(t, res.Records, 12)
	assert.Contains(t, res.Status, "12")
	assert.Contains(t, res.Status, "network")
	assert.Equal(t, "2024-01-01 12:00:00", res.Records[0].FullTime)
	assert.Equal(t, "2024-01-02 10:00:00", res.Records[11].FullTime)
	assert.Same(t, res, c.LastResult())

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, scroll.StateIdle, c.State())
	assert.Equal(t, 12, c.PoolSize())
}

func TestStartWhileScrollingCancels(t *testing.T) {
	page := &fakePage{}
	c := newController(t, page)

	results, ok := c.Start(context.Background(), record.DateRange{})
	require.True(t, ok)

	again, ok := c.Start(context.Background(), record.DateRange{})
	assert.False(t, ok)
	assert.Nil(t, again)

	select {
	case res := <-results:
		assert.Equal(t, scroll.ReasonUserStopped, res.Reason)
		assert.Contains(t, res.Status, "user stopped")
	case <-time.After(5 * time.Second):
		t.Fatal("session was not cancelled")
	}
}

func TestAbortedSessionClosesResults(t *testing.T) {
	c := newController(t, &fakePage{})

	ctx, cancel := context.WithCancel(context.Background())
	results, ok := c.Start(ctx, record.DateRange{})
	require.True(t, ok)
	cancel()

	select {
	case res, open := <-results:
		assert.False(t, open)
		assert.Nil(t, res)
	case <-time.After(5 * time.Second):
		t.Fatal("results channel was not closed")
	}
	assert.Nil(t, c.LastResult())
}

func TestExtractStatusDistinguishesEmptyRange(t *testing.T) {
	page := &fakePage{}
	c := newController(t, page)
	c.ingest([]record.Record{{Timestamp: base * 1000, Text: "old"}}, "test")

	start, err := time.ParseInLocation(record.DateLayout, "2030-01-01", time.UTC)
	require.NoError(t, err)

	res := c.Extract(context.Background(), record.DateRange{Start: start})

	assert.Equal(t, 1, res.Scraped)
	assert.Empty(t, res.Records)
	assert.Contains(t, res.Status, "none in the selected date range")
}

func TestExtractFallsBackToDOM(t *testing.T) {
	page := &fakePage{
		html: `<html><body><div><div jsname="i6CNtf"></div>` +
			`<div data-date="20240102"><h2 class="rp10kf">Jan 2</h2></div>` +
			`<c-wiz><div jsname="r4nke">Prompted short</div><div class="H3Q9vf XTnvW">10:30 AM • x</div>` +
			`<button aria-label="Delete activity item full text"></button></c-wiz>` +
			`</div></body></html>`,
	}
	c := newController(t, page)

	res := c.Extract(context.Background(), record.DateRange{})

	assert.Equal(t, extract.MethodDOMLabel, res.Method)
	assert.Equal(t, []record.DisplayRecord{{FullTime: "2024-01-02 10:30:00", Text: "full text"}}, res.Records)
}

func TestExtractReadsInlineScripts(t *testing.T) {
	page := &fakePage{
		html: `<html><head><script>AF_initDataCallback({data:` +
			payloadBody(entry(base*1_000_000, "inline")) + `});</script></head><body></body></html>`,
	}
	c := newController(t, page)

	res := c.Extract(context.Background(), record.DateRange{})

	assert.Equal(t, extract.MethodNetwork, res.Method)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "inline", res.Records[0].Text)
}

func TestExtractSnapshotFailure(t *testing.T) {
	page := &fakePage{snapErr: errors.New("target closed")}
	c := newController(t, page)

	res := c.Extract(context.Background(), record.DateRange{})

	assert.Equal(t, extract.MethodDOMVisible, res.Method)
	assert.Contains(t, res.Status, "no records scraped")
	assert.NotEmpty(t, res.Warning)
}

func TestClearEmptiesPool(t *testing.T) {
	c := newController(t, &fakePage{})
	c.ingest([]record.Record{{Timestamp: 1, Text: "a"}}, "test")
	require.Equal(t, 1, c.PoolSize())

	c.Clear()

	assert.Equal(t, 0, c.PoolSize())
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "no records scraped (method: dom-visible)", StatusMessage(extract.MethodDOMVisible, 0, 0))
	assert.Equal(t, "extracted 3 records (method: network)", StatusMessage(extract.MethodNetwork, 5, 3))
}
