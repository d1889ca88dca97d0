package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pawnlend/docverify/internal/bootstrap"
	"github.com/pawnlend/docverify/internal/config"
	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/usecase"
	"github.com/pawnlend/docverify/internal/observability/logging"
	"github.com/pawnlend/docverify/internal/observability/metrics"
)

const serviceName = "docverify-worker"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodeID, err := os.Hostname()
	if err != nil || nodeID == "" {
		nodeID = "worker-unknown"
	}
	logger := logging.WithNode(logging.NewJSONLogger(serviceName, cfg.LogLevel), nodeID)

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	if processUC, ok := app.ProcessUC.(*usecase.ProcessUseCase); ok {
		processUC.WithObserver(workerMetrics, serviceName)
	}
	go serveMetrics(ctx, cfg.WorkerMetricsPort, workerMetrics, logger)
	go reapLoop(ctx, app, workerMetrics, cfg.ReapInterval(), logger)

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, documentID string) error {
		return drainQueue(handlerCtx, app, nodeID)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// drainQueue processes claimable entries until the queue is empty. Wake-ups
// carry no payload the worker trusts; the durable queue decides what runs
// next, so a single message can drain a backlog.
func drainQueue(ctx context.Context, app *bootstrap.App, nodeID string) error {
	for {
		err := app.ProcessUC.ProcessNext(ctx, nodeID)
		if err == nil {
			continue
		}
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil
		}
		// Attempt failures are already settled in the queue; keep going
		// unless the context is gone.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func reapLoop(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.ProcessUC.Reap(ctx); err != nil {
				logger.Warn("reap failed", "error", err)
			}
			sampleQueueDepth(ctx, app, workerMetrics)
		}
	}
}

func sampleQueueDepth(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics) {
	stats, err := app.AnalysisUC.Statistics(ctx)
	if err != nil {
		return
	}
	workerMetrics.SetQueueDepth(serviceName, "queued", stats.Pending)
	workerMetrics.SetQueueDepth(serviceName, "processing", stats.Processing)
	workerMetrics.SetQueueDepth(serviceName, "completed", stats.Completed)
	workerMetrics.SetQueueDepth(serviceName, "failed", stats.Failed)
}

func serveMetrics(ctx context.Context, port string, workerMetrics *metrics.WorkerMetrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server stopped", "error", err)
	}
}
