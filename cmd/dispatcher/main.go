package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealerops/compliance-tracker/config"
	"github.com/dealerops/compliance-tracker/internal/dispatch"
	"github.com/dealerops/compliance-tracker/internal/health"
	"github.com/dealerops/compliance-tracker/internal/infrastructure/postgres"
	ctxlog "github.com/dealerops/compliance-tracker/internal/log"
	"github.com/dealerops/compliance-tracker/internal/metrics"
	"github.com/dealerops/compliance-tracker/internal/notify"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	checklistRepo := postgres.NewChecklistRepository(pool, logger)
	reminderRepo := postgres.NewReminderRepository(pool)
	senders := notify.NewRegistry(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	dispatcher := dispatch.NewDispatcher(
		reminderRepo,
		senders,
		logger,
		time.Duration(cfg.PollIntervalSec)*time.Second,
		cfg.DispatchConcurrency,
	)
	go dispatcher.Start(ctx)

	// stale cutoff of 5 minutes: a delivery attempt never legitimately
	// holds a reminder in triggered longer than that
	escalator := dispatch.NewEscalator(reminderRepo, logger,
		time.Duration(cfg.EscalateIntervalSec)*time.Second, 5*time.Minute)
	go escalator.Start(ctx)

	sweeper := dispatch.NewSweeper(checklistRepo, logger, cfg.SweepCron)
	go func() {
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("sweeper", "error", err)
			stop()
		}
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("dispatcher shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
