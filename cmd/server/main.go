package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/serodriguez/tocbuilder/internal/api"
	"github.com/serodriguez/tocbuilder/internal/cache"
	"github.com/serodriguez/tocbuilder/internal/config"
	"github.com/serodriguez/tocbuilder/internal/pdf"
	"github.com/serodriguez/tocbuilder/internal/pipeline"
	"github.com/serodriguez/tocbuilder/internal/vision"
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

	// Initialize clients and storage.
	store, err := cache.Open(cfg.CachePath, cfg.RecordAge)
	if err != nil {
		log.Error("failed to open response cache", "path", cfg.CachePath, "error", err)
		os.Exit(1)
	}
	vc := vision.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	// Initialize pipeline.
	workers := config.ResolveWorkers(cfg.WorkerCount, runtime.NumCPU(), cfg.WorkerFloor, cfg.WorkerCeiling)
	pool := pipeline.NewWorkerPool(pdf.PdftoppmRenderer{}, vc, workers, log)
	orch := pipeline.NewOrchestrator(cfg, pdf.FileSource{}, pool, store, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, vc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Close()
	}()

	log.Info("starting tocbuilder", "port", cfg.Port, "workers", workers, "model", cfg.OpenAIModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
