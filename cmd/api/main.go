package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/config"
	"github.com/rxanchor/rxanchor/internal/handler/v1"
	"github.com/rxanchor/rxanchor/internal/service"
	"github.com/rxanchor/rxanchor/internal/store"
	"github.com/rxanchor/rxanchor/pkg/logger"
	"github.com/rxanchor/rxanchor/pkg/metrics"
	"github.com/rxanchor/rxanchor/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("rxanchor")

	records := store.NewMemory()
	auditRing := store.NewAuditRing(0)

	auditSvc := service.NewAuditService(auditRing, log)
	defer auditSvc.Shutdown()

	client := baas.NewClient(cfg.BaaS, log)

	submissionSvc := service.NewSubmissionService(records, client, auditSvc, log)
	webhookSvc := service.NewWebhookService(records, auditSvc, log)
	verificationSvc := service.NewVerificationService(records, client, auditSvc, log)

	router := v1.NewRouter(v1.RouterDeps{
		Prescriptions: v1.NewPrescriptionHandler(submissionSvc, collector, log),
		Webhooks:      v1.NewWebhookHandler(webhookSvc, collector, log),
		Verifications: v1.NewVerificationHandler(verificationSvc, collector, log),
		Collector:     collector,
		Config:        cfg,
		Log:           log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
