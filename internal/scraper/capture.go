package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"ticketwatch/internal/pkg/config"
	"ticketwatch/internal/pkg/models"
)

// captureStore is the single consumer-owned result store both capture
// channels write into. Writes are idempotent under last-write-wins: a write
// always stores a complete body, never a partial overwrite.
type captureStore struct {
	mu        sync.Mutex
	endpoints []*TargetEndpoint
	result    models.CaptureResult
	raw       map[string][]byte // every inventory-scoped body seen, by URL
	done      chan struct{}
	completed bool
}

func newCaptureStore(endpoints []*TargetEndpoint) *captureStore {
	return &captureStore{
		endpoints: endpoints,
		result:    make(models.CaptureResult),
		raw:       make(map[string][]byte),
		done:      make(chan struct{}),
	}
}

// record retains the body for recovery regardless of target match, then fills
// every matching endpoint. Closes done once all targets are found.
func (s *captureStore) record(url string, body []byte) {
	if len(body) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.raw[url] = body
	for _, ep := range s.endpoints {
		if matchPattern(ep.Pattern, url) {
			s.result[ep.Key] = body
			ep.Found = true
		}
	}
	s.checkCompleteLocked()
}

// recover retroactively fills unfilled targets from previously seen raw
// responses. This covers the race where a response arrived before the match
// loop was wired.
func (s *captureStore) recover() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ep := range s.endpoints {
		if ep.Found {
			continue
		}
		for url, body := range s.raw {
			if matchPattern(ep.Pattern, url) {
				s.result[ep.Key] = body
				ep.Found = true
				break
			}
		}
	}
	s.checkCompleteLocked()
}

func (s *captureStore) checkCompleteLocked() {
	if s.completed {
		return
	}
	for _, ep := range s.endpoints {
		if !ep.Found {
			return
		}
	}
	s.completed = true
	close(s.done)
}

func (s *captureStore) complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *captureStore) missingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []string
	for _, ep := range s.endpoints {
		if !ep.Found {
			missing = append(missing, ep.Key)
		}
	}
	return missing
}

// snapshot returns a copy of the completed result.
func (s *captureStore) snapshot() models.CaptureResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(models.CaptureResult, len(s.result))
	for k, v := range s.result {
		out[k] = v
	}
	return out
}

// CaptureCoordinator watches page traffic through two redundant channels and
// resolves once all target endpoint responses were seen.
type CaptureCoordinator struct {
	cfg   *config.ScrapeConfig
	log   *slog.Logger
	store *captureStore

	mu      sync.Mutex
	pending map[network.RequestID]string // in-scope 200 responses awaiting a body read
}

func NewCaptureCoordinator(cfg *config.ScrapeConfig, log *slog.Logger) *CaptureCoordinator {
	return &CaptureCoordinator{
		cfg:     cfg,
		log:     log,
		store:   newCaptureStore(defaultEndpoints()),
		pending: make(map[network.RequestID]string),
	}
}

// Wire attaches both capture channels to the page. It must run before
// navigation starts, else early responses are missed.
func (c *CaptureCoordinator) Wire(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			// Channel 1: page-level response events. The body may not be
			// readable yet in some session types, hence the second channel.
			if ev.Response == nil || ev.Response.Status != 200 {
				return
			}
			if !strings.Contains(ev.Response.URL, c.cfg.InventoryScope) {
				return
			}
			c.mu.Lock()
			c.pending[ev.RequestID] = ev.Response.URL
			c.mu.Unlock()
			go c.fetchBody(ctx, ev.RequestID, ev.Response.URL)
		case *network.EventLoadingFinished:
			// Channel 2: protocol-level read once the body is fully streamed.
			c.mu.Lock()
			url, ok := c.pending[ev.RequestID]
			c.mu.Unlock()
			if ok {
				go c.fetchBody(ctx, ev.RequestID, url)
			}
		}
	})
}

// fetchBody pulls a response body over the inspection session and records it.
// GetResponseBody decodes base64-encoded bodies before returning.
func (c *CaptureCoordinator) fetchBody(ctx context.Context, id network.RequestID, url string) {
	cc := chromedp.FromContext(ctx)
	if cc == nil || cc.Target == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, cc.Target))
	if err != nil {
		c.log.Debug("response body not readable", "url", url, "error", err)
		return
	}
	if !json.Valid(body) {
		// keep the raw text; the pricing layer decides what to do with it
		c.log.Debug("captured body is not valid JSON", "url", url, "bytes", len(body))
	}
	c.store.record(url, body)
}

// Capture waits for all target responses with a tiered timeout: a short
// window first, then a page refresh and a longer window bounded by the
// remaining session budget, then a best-effort recovery pass over everything
// already seen.
func (c *CaptureCoordinator) Capture(ctx context.Context, deadline time.Time) (models.CaptureResult, error) {
	if err := c.await(ctx, c.cfg.CaptureShortTimeout.Std()); err == nil {
		return c.store.snapshot(), nil
	} else if ctx.Err() != nil {
		return nil, &DataCaptureError{Phase: "capture", Missing: c.store.missingKeys(), Err: ctx.Err()}
	}

	c.log.Warn("capture incomplete after short window, refreshing", "missing", c.store.missingKeys())
	c.refresh(ctx)

	long := c.cfg.CaptureLongTimeout.Std()
	if remaining := time.Until(deadline); remaining < long {
		long = remaining
	}
	if long > 0 {
		if err := c.await(ctx, long); err == nil {
			return c.store.snapshot(), nil
		}
	}

	c.store.recover()
	if c.store.complete() {
		c.log.Info("capture completed via recovery pass")
		return c.store.snapshot(), nil
	}
	return nil, &DataCaptureError{Phase: "capture", Missing: c.store.missingKeys()}
}

func (c *CaptureCoordinator) await(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.store.done:
		return nil
	case <-timer.C:
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh runs an ordered list of recovery strategies, each independently
// fallible, stopping at the first success.
func (c *CaptureCoordinator) refresh(ctx context.Context) {
	strategies := []struct {
		name string
		run  func(context.Context) error
	}{
		{"refresh control", c.clickRefreshControl},
		{"button text scan", c.clickButtonByText},
		{"page reload", c.reloadPage},
	}
	for _, s := range strategies {
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.run(sctx)
		cancel()
		if err == nil {
			c.log.Info("page refreshed", "strategy", s.name)
			return
		}
		c.log.Debug("refresh strategy failed", "strategy", s.name, "error", err)
	}
}

func (c *CaptureCoordinator) clickRefreshControl(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Click(c.cfg.RefreshSelector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *CaptureCoordinator) clickButtonByText(ctx context.Context) error {
	var clicked bool
	js := fmt.Sprintf(`(function(){
		const want = %q.toLowerCase();
		for (const b of document.querySelectorAll('button')) {
			if (b.innerText && b.innerText.toLowerCase().includes(want)) { b.click(); return true; }
		}
		return false;
	})()`, c.cfg.RefreshText)
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no button matching %q", c.cfg.RefreshText)
	}
	return nil
}

func (c *CaptureCoordinator) reloadPage(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Reload())
}
