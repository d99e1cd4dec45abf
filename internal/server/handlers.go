package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticketwatch/internal/pkg/storage"
	"ticketwatch/internal/scraper"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.history != nil {
		recent, err := s.history.RecentOutcomes(r.Context(), 10)
		if err != nil {
			s.log.Error("failed to read scrape history", "error", err)
		} else {
			outcomes := make([]map[string]any, 0, len(recent))
			for _, rec := range recent {
				outcomes = append(outcomes, map[string]any{
					"url":         rec.URL,
					"outcome":     rec.Outcome,
					"tickets":     rec.Tickets,
					"duration_ms": rec.Duration.Milliseconds(),
					"started_at":  rec.StartedAt,
				})
			}
			resp["recent"] = outcomes
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTickets runs the capture-and-price pipeline for one vendor URL.
func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	if !s.allowedURL(target) {
		writeError(w, http.StatusBadRequest, "url does not belong to the vendor domain")
		return
	}

	started := time.Now()
	tickets, err := s.scraper.Run(r.Context(), target)
	s.recordOutcome(target, started, len(tickets), err)

	if err != nil {
		s.log.Error("scrape failed", "url", target, "error", err)
		status, outcome := classify(err)
		if outcome == "blocked" || outcome == "captcha_timeout" {
			s.notifier.NotifySessionBurned(target, err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) allowedURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := s.cfg.Server.AllowedHost
	if host == "" {
		return true
	}
	return u.Hostname() == host || strings.HasSuffix(u.Hostname(), "."+host)
}

func (s *Server) recordOutcome(target string, started time.Time, tickets int, err error) {
	if s.history == nil {
		return
	}
	_, outcome := classify(err)
	rec := storage.ScrapeRecord{
		URL:       target,
		Outcome:   outcome,
		Tickets:   tickets,
		Duration:  time.Since(started),
		StartedAt: started,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.SaveOutcome(ctx, rec); err != nil {
		s.log.Error("failed to record scrape outcome", "error", err)
	}
}

// classify maps a pipeline error to an HTTP status and an outcome label.
func classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, "ok"
	}
	var connErr *scraper.BrowserConnectionError
	var blockedErr *scraper.ScraperBlockedError
	var captchaErr *scraper.CaptchaTimeoutError
	var captureErr *scraper.DataCaptureError
	switch {
	case errors.As(err, &connErr):
		return http.StatusBadGateway, "browser_connection"
	case errors.As(err, &blockedErr):
		return http.StatusServiceUnavailable, "blocked"
	case errors.As(err, &captchaErr):
		return http.StatusGatewayTimeout, "captcha_timeout"
	case errors.As(err, &captureErr):
		return http.StatusBadGateway, "data_capture"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
