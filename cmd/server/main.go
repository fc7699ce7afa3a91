package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docfill/internal/api"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/dgallion1/docfill/internal/render"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.Error("create work dir", "dir", cfg.WorkDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := render.NewConverter(cfg.SofficePath, cfg.ConvertTimeout, log)
	if !conv.Available() {
		log.Warn("pdf converter not found, pdf output disabled", "binary", conv.Binary())
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, conv, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv, err := api.NewServer(orch, log, cfg)
	if err != nil {
		log.Error("init server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting docfill", "port", cfg.Port, "work_dir", cfg.WorkDir, "pdf_converter", conv.Available())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
