package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketwatch/internal/pkg/config"
	"ticketwatch/internal/pkg/models"
	"ticketwatch/internal/scraper"
)

type stubScraper struct {
	tickets []models.Ticket
	err     error
}

func (s *stubScraper) Run(context.Context, string) ([]models.Ticket, error) {
	return s.tickets, s.err
}

func testServer(t *testing.T, stub *stubScraper) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.APIKeys = []string{"test-key"}
	cfg.Server.RateLimit.RPS = 100
	cfg.Server.RateLimit.Burst = 100
	cfg.Server.AllowedHost = "tickets.example.com"
	cfg.Server.ReadHeaderTimeout = config.Duration(10 * time.Second)
	return New(cfg, nil, stub, nil, nil)
}

func doRequest(s *Server, target, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func TestHandleTicketsHappyPath(t *testing.T) {
	stub := &stubScraper{tickets: []models.Ticket{{
		Section: "Floor A", Row: "B", Seats: "10,11,12,13",
		Quantity: 4, FacePrice: 22, TaxedCost: 5.5, TotalCost: 27.5,
	}}}
	s := testServer(t, stub)

	rec := doRequest(s, "/tickets?url=https://tickets.example.com/event/99", "test-key")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, stub.tickets[0], got[0])
}

func TestHandleTicketsRequiresAPIKey(t *testing.T) {
	s := testServer(t, &stubScraper{})

	rec := doRequest(s, "/tickets?url=https://tickets.example.com/event/99", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, "/tickets?url=https://tickets.example.com/event/99", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleTicketsValidatesURL(t *testing.T) {
	s := testServer(t, &stubScraper{})

	rec := doRequest(s, "/tickets", "test-key")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, "/tickets?url=https://evil.example.org/event/99", "test-key")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// subdomains of the vendor host are fine
	rec = doRequest(s, "/tickets?url=https://www.tickets.example.com/event/99", "test-key")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleTicketsErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{&scraper.BrowserConnectionError{Err: errors.New("dial")}, http.StatusBadGateway},
		{&scraper.ScraperBlockedError{Marker: "denied"}, http.StatusServiceUnavailable},
		{&scraper.CaptchaTimeoutError{Attempts: 3}, http.StatusGatewayTimeout},
		{&scraper.DataCaptureError{Phase: "capture"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s := testServer(t, &stubScraper{err: tt.err})
		rec := doRequest(s, "/tickets?url=https://tickets.example.com/event/99", "test-key")
		assert.Equalf(t, tt.wantStatus, rec.Code, "error %T", tt.err)
	}
}

func TestRateLimitPerKey(t *testing.T) {
	s := testServer(t, &stubScraper{})
	s.cfg.Server.RateLimit.RPS = 0.001
	s.cfg.Server.RateLimit.Burst = 1
	s.limiter = newRateLimiter(0.001, 1)

	url := "/tickets?url=https://tickets.example.com/event/99"
	rec := doRequest(s, url, "test-key")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, url, "test-key")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPingAndHealthAreOpen(t *testing.T) {
	s := testServer(t, &stubScraper{})

	rec := doRequest(s, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	rec = doRequest(s, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
