package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mohammd-1819/TechNews/config"
	"github.com/mohammd-1819/TechNews/news"
	"github.com/mohammd-1819/TechNews/scrape"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	store, err := news.NewStore(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open news store", zap.Error(err))
	}
	defer store.Close()

	fetcher := scrape.NewFetcher(cfg.Scrape.Timeout.Std(), logger)
	scraper := scrape.NewScraper(fetcher, cfg.Scrape.BaseURL, cfg.Scrape.Workers, logger)
	importer := news.NewFeedImporter(store, logger)
	api := news.NewAPIServer(scraper, store, importer, logger)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.SetupRouter(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("failed to stop server", zap.Error(err))
	}
	logger.Info("server stopped")
}
