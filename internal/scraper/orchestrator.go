package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"ticketwatch/internal/pkg/config"
	"ticketwatch/internal/pkg/models"
	"ticketwatch/internal/pricing"
)

// Orchestrator is the top-level driver: one remote browser session and one
// page per request, no cross-request sharing.
type Orchestrator struct {
	cfg    *config.Config
	log    *slog.Logger
	engine *pricing.Engine
}

func NewOrchestrator(cfg *config.Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		log:    log,
		engine: pricing.NewEngine(log),
	}
}

// Run connects to the remote browser, navigates the target URL through the
// bot-detection gate, captures the three vendor responses and prices them.
// The whole run is bounded by the wall-clock session budget, checked before
// every phase; the browser and page are released on every exit path.
func (o *Orchestrator) Run(ctx context.Context, targetURL string) (tickets []models.Ticket, err error) {
	started := time.Now()
	deadline := started.Add(o.cfg.Scrape.SessionBudget.Std())
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	sess, err := openSession(ctx, &o.cfg.Browser, o.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Graceful browser close whenever the target site saw this session:
		// on success, and on every error whose close policy demands it.
		sess.release(err == nil || NeedsSessionClose(err))
	}()

	// Both capture channels attach before navigation begins, else early
	// responses are missed.
	coordinator := NewCaptureCoordinator(&o.cfg.Scrape, o.log)
	coordinator.Wire(sess.page)

	if err = o.checkBudget(deadline, "navigation"); err != nil {
		return nil, err
	}
	o.log.Info("navigating", "url", targetURL)
	if navErr := chromedp.Run(sess.page, chromedp.Navigate(targetURL)); navErr != nil {
		err = &DataCaptureError{Phase: "navigation", Err: navErr}
		return nil, err
	}

	if err = o.checkBudget(deadline, "captcha wait"); err != nil {
		return nil, err
	}
	gate := NewCaptchaGate(&o.cfg.Scrape, o.log)
	if err = gate.Await(sess.page, deadline); err != nil {
		return nil, err
	}

	if err = o.checkBudget(deadline, "data capture"); err != nil {
		return nil, err
	}
	capture, err := coordinator.Capture(sess.page, deadline)
	if err != nil {
		return nil, err
	}

	tickets, priceErr := o.engine.Price(capture)
	if priceErr != nil {
		err = &DataCaptureError{Phase: "pricing", Err: priceErr}
		return nil, err
	}

	o.log.Info("scrape finished",
		"url", targetURL, "tickets", len(tickets), "elapsed", time.Since(started))
	return tickets, nil
}

// checkBudget raises a fatal timeout before a phase starts when the session
// budget is already spent, without attempting any work in that phase.
func (o *Orchestrator) checkBudget(deadline time.Time, phase string) error {
	if time.Now().Before(deadline) {
		return nil
	}
	return &DataCaptureError{
		Phase: phase,
		Err:   fmt.Errorf("session budget of %s exceeded", o.cfg.Scrape.SessionBudget.Std()),
	}
}
