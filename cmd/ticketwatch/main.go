package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ticketwatch/internal/notify"
	"ticketwatch/internal/pkg/config"
	"ticketwatch/internal/pkg/logging"
	"ticketwatch/internal/pkg/storage"
	"ticketwatch/internal/scraper"
	"ticketwatch/internal/server"
)

const defaultConfigPath = "configs/production.yaml"

type flags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := run(); err != nil {
		slog.Error("ticketwatch failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	f := parseFlags()
	log := logging.SetupLogger("ticketwatch", f.logLevel)

	log.Info("Loading config", "path", f.configPath)
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var history storage.HistoryStorage
	if cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresHistoryStorage(&cfg.Postgres)
		if err != nil {
			return fmt.Errorf("failed to init scrape history storage: %w", err)
		}
		defer pg.Close()
		history = pg
	} else {
		log.Info("Scrape history storage disabled (no postgres DSN)")
	}

	var notifier *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		defer notifier.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(ctx, cancel)

	orchestrator := scraper.NewOrchestrator(cfg, log)
	srv := server.New(cfg, log, orchestrator, history, notifier)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server error: %w", err)
	}

	log.Info("ticketwatch stopped gracefully")
	return nil
}

func parseFlags() flags {
	var f flags
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	flag.StringVar(&f.configPath, "config", defaultConfig, "Path to config file")
	flag.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	return f
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
