package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/catalog-search/internal/config"
	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/catalog-search/internal/observability/logging"
	"github.com/kirillkom/catalog-search/internal/observability/metrics"
)

// analytics consumes search events and exports them as Prometheus metrics.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("catalog-search-analytics", cfg.LogLevel))

	if cfg.NATSURL == "" {
		slog.Error("analytics_requires_nats", "env", "NATS_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ClientName: "catalog-search-analytics",
	})
	if err != nil {
		slog.Error("event_bus_failed", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	analytics := metrics.NewAnalyticsMetrics("catalog-search-analytics")
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", analytics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.AnalyticsMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("analytics_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("analytics_metrics_failed", "error", err)
		}
	}()

	slog.Info("analytics_subscribed", "subject", cfg.NATSSubject)
	err = events.SubscribeSearchExecuted(ctx, func(_ context.Context, event domain.SearchEvent) error {
		analytics.StartEvent()
		if !event.At.IsZero() {
			analytics.ObserveEventLag(time.Since(event.At))
		}
		analytics.FinishEvent(string(event.Strategy), event.Rows, event.Failed, time.Duration(event.DurationMS*float64(time.Millisecond)))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("analytics_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
