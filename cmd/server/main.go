package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/treasury-tracker/internal/api"
	"github.com/codyseavey/treasury-tracker/internal/app"
	"github.com/codyseavey/treasury-tracker/internal/config"
	"github.com/codyseavey/treasury-tracker/internal/cronrunner"
	"github.com/codyseavey/treasury-tracker/internal/logger"
)

func main() {
	envOnly, _ := strconv.ParseBool(os.Getenv("CTT_ENV_ONLY"))
	cfg, err := config.Load(os.Getenv("CTT_CONFIG"), envOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	log.Info("server exited")
}

func run(cfg config.Config, log *zap.Logger) error {
	a, err := app.New(cfg, log, cfg.LedgerUpdater.Enabled)
	if err != nil {
		return err
	}
	defer a.Close()

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.LedgerUpdater.Enabled {
		worker, err := a.PriceWorker()
		if err != nil {
			return err
		}
		runner := cronrunner.New(log.Named("cron"), ctx)
		if _, err := runner.Add(cfg.LedgerUpdater.Schedule, func(ctx context.Context) {
			if _, err := worker.RunOnce(ctx); err != nil {
				log.Warn("ledger update failed", zap.Error(err))
				return
			}
			a.Resolver.Invalidate()
		}); err != nil {
			return fmt.Errorf("invalid ledger_updater.schedule %q: %w", cfg.LedgerUpdater.Schedule, err)
		}
		runner.Start()
		defer runner.Stop()
	}

	deps := api.Dependencies{
		Snapshots: a.Snapshots,
		Prices:    a.Resolver,
		Catalog:   a.Catalog,
		DATCO:     a.DATCO,
	}
	if a.LedgerRepo != nil {
		deps.Ledger = a.LedgerRepo
	}
	router := api.SetupRouter(deps, cfg.Server.CORSOrigins, log)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Server.HTTPAddr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Stop scheduled ledger updates before draining requests
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	return nil
}
