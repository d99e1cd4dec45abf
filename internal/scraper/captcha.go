package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"ticketwatch/internal/pkg/config"
)

// CaptchaGate waits for the bot-detection challenge to be passed. Per attempt
// it races three signals: a post-verification request into the vendor API
// scope, the provider's solve-finished signal (the challenge frame
// disappearing), and the attempt timer. Attempts are bounded; between
// attempts the page is inspected for the blocking modal and reloaded.
type CaptchaGate struct {
	cfg *config.ScrapeConfig
	log *slog.Logger

	// detection hooks, swappable in tests
	solveSignals func(ctx context.Context, solved chan<- struct{})
	blockedPage  func(ctx context.Context) bool
	reload       func(ctx context.Context) error
}

func NewCaptchaGate(cfg *config.ScrapeConfig, log *slog.Logger) *CaptchaGate {
	g := &CaptchaGate{cfg: cfg, log: log}
	g.solveSignals = g.defaultSolveSignals
	g.blockedPage = g.defaultBlockedPage
	g.reload = g.defaultReload
	return g
}

// Await blocks until the challenge is passed, the site blocks the session, or
// the attempt budget is exhausted. The capture channels wired before this
// gate keep running unaffected.
func (g *CaptchaGate) Await(ctx context.Context, deadline time.Time) error {
	for attempt := 1; ; attempt++ {
		if !time.Now().Before(deadline) {
			return &DataCaptureError{Phase: "captcha wait", Err: fmt.Errorf("session budget exhausted")}
		}

		solved, err := g.awaitAttempt(ctx)
		if err != nil {
			return err
		}
		if solved {
			g.log.Info("challenge passed", "attempt", attempt)
			return nil
		}

		if attempt >= g.cfg.CaptchaMaxAttempts {
			return &CaptchaTimeoutError{Attempts: attempt}
		}
		// Blocked is distinct from slow: the site revoked access, so remaining
		// attempts are pointless.
		if g.blockedPage(ctx) {
			return &ScraperBlockedError{Marker: g.cfg.BlockedMarker}
		}

		g.log.Warn("challenge attempt timed out, reloading page", "attempt", attempt)
		if err := g.reload(ctx); err != nil {
			g.log.Debug("page reload failed", "error", err)
		}
	}
}

// awaitAttempt races the solve signals against the attempt timer. Whatever
// the outcome, cancelling the scope detaches every losing listener so none
// leak across retries.
func (g *CaptchaGate) awaitAttempt(ctx context.Context) (bool, error) {
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	solved := make(chan struct{}, 1)
	g.solveSignals(lctx, solved)

	timer := time.NewTimer(g.cfg.CaptchaAttemptTimeout.Std())
	defer timer.Stop()

	select {
	case <-solved:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (g *CaptchaGate) defaultSolveSignals(ctx context.Context, solved chan<- struct{}) {
	signal := func() {
		select {
		case solved <- struct{}{}:
		default:
		}
	}

	// Signal 1: a post-verification request into the vendor inventory scope
	// means the gate let the page through.
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if req, ok := ev.(*network.EventRequestWillBeSent); ok && req.Request != nil {
			if strings.Contains(req.Request.URL, g.cfg.InventoryScope) {
				signal()
			}
		}
	})

	// Signal 2: the provider-side solve finished and the challenge frame is
	// gone from the page.
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var gone bool
				ectx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := chromedp.Run(ectx, chromedp.Evaluate(
					`document.querySelector('iframe[src*="captcha"]') === null`, &gone))
				cancel()
				if err == nil && gone {
					signal()
					return
				}
			}
		}
	}()
}

func (g *CaptchaGate) defaultBlockedPage(ctx context.Context) bool {
	var blocked bool
	ectx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	js := fmt.Sprintf(
		`document.body !== null && document.body.innerText.includes(%q)`, g.cfg.BlockedMarker)
	if err := chromedp.Run(ectx, chromedp.Evaluate(js, &blocked)); err != nil {
		return false
	}
	return blocked
}

func (g *CaptchaGate) defaultReload(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return chromedp.Run(rctx, chromedp.Reload())
}
