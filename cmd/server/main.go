package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/jobtrail/internal/api"
	"github.com/dgallion1/jobtrail/internal/applications"
	"github.com/dgallion1/jobtrail/internal/assistant"
	"github.com/dgallion1/jobtrail/internal/config"
	"github.com/dgallion1/jobtrail/internal/filestore"
	"github.com/dgallion1/jobtrail/internal/pipeline"
	"github.com/dgallion1/jobtrail/internal/scrape"
	"github.com/dgallion1/jobtrail/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	backend := store.NewClient(cfg.BackendURL, cfg.BackendKey)
	apps := applications.NewService(backend, log)

	files, err := filestore.New(ctx, filestore.Options{
		Bucket:    cfg.StorageBucket,
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
	})
	if err != nil {
		log.Error("upload storage init failed", "error", err)
		os.Exit(1)
	}

	// Optional collaborators stay nil interfaces when unconfigured so the
	// handlers and workers can test for them.
	pipeDeps := pipeline.Deps{Applications: apps}
	apiDeps := api.Deps{Applications: apps}

	if files != nil {
		pipeDeps.Uploads = files
		log.Info("upload storage enabled", "bucket", files.Bucket())
	}

	var claude *assistant.Client
	if cfg.AssistantEnabled() {
		claude = assistant.NewClient(assistant.Options{
			APIKey:           cfg.AnthropicAPIKey,
			Model:            cfg.AnthropicModel,
			BaseURL:          cfg.AnthropicBaseURL,
			MaxContextTokens: cfg.AssistantMaxContextTokens,
			StatsWindow:      cfg.StatsWindow,
		})
		pipeDeps.Extractor = claude
		apiDeps.Assistant = claude
		log.Info("assistant enabled", "model", claude.Model())
	}

	var scraper *scrape.Client
	if cfg.ScrapeEnabled() {
		scraper = scrape.NewClient(cfg.ScrapeURL, cfg.ScrapeAPIKey, cfg.ScrapeCacheTTL)
		apiDeps.Profiles = scraper
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, pipeDeps, log)
	orch.Start(ctx)
	apiDeps.Imports = orch

	// Initialize HTTP server.
	srv := api.NewServer(apiDeps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. main blocks on done until the queue drains and
	// clients close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if claude != nil {
			claude.Close()
		}
		if scraper != nil {
			scraper.Close()
		}
		backend.Close()
	}()

	log.Info("starting jobtrail", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	log.Info("shutdown complete")
}
