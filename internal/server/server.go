package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ticketwatch/internal/notify"
	"ticketwatch/internal/pkg/config"
	"ticketwatch/internal/pkg/models"
	"ticketwatch/internal/pkg/storage"
)

// Scraper runs one capture-and-price pipeline for a vendor URL.
type Scraper interface {
	Run(ctx context.Context, url string) ([]models.Ticket, error)
}

type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	scraper  Scraper
	history  storage.HistoryStorage // optional
	notifier *notify.TelegramNotifier
	limiter  *rateLimiter
}

func New(cfg *config.Config, log *slog.Logger, scraper Scraper, history storage.HistoryStorage, notifier *notify.TelegramNotifier) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		scraper:  scraper,
		history:  history,
		notifier: notifier,
		limiter:  newRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	tickets := r.PathPrefix("/tickets").Subrouter()
	tickets.Use(s.authMiddleware, s.rateLimitMiddleware)
	tickets.HandleFunc("", s.handleTickets).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout.Std(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("HTTP server listening", "addr", s.cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
