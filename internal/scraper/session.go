package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"ticketwatch/internal/pkg/config"
)

// session owns the remote browser resources for one request: the provider
// connection and the single page. Acquired at session start, released exactly
// once on every exit path. No process-wide browser handle exists.
type session struct {
	name        string
	page        context.Context
	cancelPage  context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *slog.Logger
	once        sync.Once
}

// openSession connects to the remote browser provider and opens a page. One
// connect timeout, no retry: a connection failure is immediately fatal and
// leaves nothing to close.
func openSession(ctx context.Context, cfg *config.BrowserConfig, log *slog.Logger) (*session, error) {
	name := fmt.Sprintf("ticketwatch-%d", time.Now().UnixNano())
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, cfg.WebSocketURL(name))
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	// The first action dials the provider and attaches the target; network
	// events must be enabled before any capture listener sees traffic.
	connectCtx, cancel := context.WithTimeout(pageCtx, cfg.ConnectTimeout.Std())
	defer cancel()
	if err := chromedp.Run(connectCtx, network.Enable()); err != nil {
		cancelPage()
		cancelAlloc()
		return nil, &BrowserConnectionError{Err: err}
	}

	log.Info("remote browser session established", "session", name)
	return &session{
		name:        name,
		page:        pageCtx,
		cancelPage:  cancelPage,
		cancelAlloc: cancelAlloc,
		log:         log,
	}, nil
}

// release tears the session down. With graceful set, the browser is closed
// explicitly before disconnecting so the remote session budget is not burned
// by a lingering instance; otherwise the connection is just dropped.
func (s *session) release(graceful bool) {
	s.once.Do(func() {
		if graceful {
			if err := chromedp.Cancel(s.page); err != nil {
				s.log.Debug("graceful browser close failed", "session", s.name, "error", err)
			}
		}
		s.cancelPage()
		s.cancelAlloc()
		s.log.Info("remote browser session released", "session", s.name, "graceful", graceful)
	})
}
