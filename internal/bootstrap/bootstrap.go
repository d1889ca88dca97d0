package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pawnlend/docverify/internal/config"
	"github.com/pawnlend/docverify/internal/core/extract"
	"github.com/pawnlend/docverify/internal/core/fraud"
	"github.com/pawnlend/docverify/internal/core/ports"
	"github.com/pawnlend/docverify/internal/core/usecase"
	"github.com/pawnlend/docverify/internal/export"
	"github.com/pawnlend/docverify/internal/infrastructure/extractor/pdflocal"
	"github.com/pawnlend/docverify/internal/infrastructure/ocr"
	"github.com/pawnlend/docverify/internal/infrastructure/queue/nats"
	"github.com/pawnlend/docverify/internal/infrastructure/reference"
	"github.com/pawnlend/docverify/internal/infrastructure/repository/postgres"
	"github.com/pawnlend/docverify/internal/infrastructure/resilience"
	"github.com/pawnlend/docverify/internal/infrastructure/storage/localfs"
	"github.com/pawnlend/docverify/internal/infrastructure/thumbnail"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Reference *fraud.Reference

	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.AnalysisProcessor
	AnalysisUC ports.AnalysisService
	ExportSvc  *export.Service

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	results := postgres.NewResultRepository(db)
	queueRepo := postgres.NewQueueRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutorWithLogger(resilience.DefaultConfig(), logger)

	wakeups, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	extractor, err := buildExtractor(cfg, executor)
	if err != nil {
		return nil, err
	}

	tables, err := reference.Load(cfg.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("load reference tables: %w", err)
	}
	ref, err := fraud.NewReference(tables)
	if err != nil {
		return nil, fmt.Errorf("compile reference tables: %w", err)
	}
	scorer := fraud.NewScorer(ref, cfg.ReviewThreshold)

	thumbs := thumbnail.New()

	ingestUC := usecase.NewIngestUseCase(docs, queueRepo, storage, wakeups, thumbs, logger)
	processUC := usecase.NewProcessUseCase(docs, results, queueRepo, storage, extractor, scorer, wakeups,
		cfg.MaxAttempts, cfg.ProcessingTimeout(), logger)
	analysisUC := usecase.NewAnalysisUseCase(docs, results, queueRepo, storage, extractor, scorer, wakeups, logger)
	exportSvc := export.NewService(results, docs, logger)

	return &App{
		Config:    cfg,
		Queue:     wakeups,
		Reference: ref,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		AnalysisUC: analysisUC,
		ExportSvc:  exportSvc,

		closeFn: func() {
			wakeups.Close()
			_ = db.Close()
		},
	}, nil
}

// buildExtractor wires the vendor client when an endpoint is configured and
// falls back to the local PDF text extractor otherwise.
func buildExtractor(cfg config.Config, executor *resilience.Executor) (*extract.Service, error) {
	opts := extract.Options{
		WordConfidenceThreshold: cfg.WordConfidenceThreshold,
		SyncMaxBytes:            cfg.SyncMaxBytes,
	}

	if cfg.VendorBaseURL == "" {
		return extract.NewService(pdflocal.New(), nil, opts), nil
	}

	client := ocr.New(cfg.VendorBaseURL, cfg.VendorAPIKey, ocr.Options{
		RequestsPerSecond:  cfg.VendorRPS,
		Burst:              cfg.VendorBurst,
		ResilienceExecutor: executor,
	})
	return extract.NewService(client, client, opts), nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
