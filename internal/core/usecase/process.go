package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/extract"
	"github.com/pawnlend/docverify/internal/core/fraud"
	"github.com/pawnlend/docverify/internal/core/ports"
)

const (
	DefaultMaxAttempts       = 3
	DefaultProcessingTimeout = 5 * time.Minute
)

// AttemptObserver receives processing telemetry. Implementations must be
// cheap and safe for concurrent use.
type AttemptObserver interface {
	StartDocument()
	FinishDocument(service string, duration time.Duration, err error)
	ObserveQueueLag(service string, lag time.Duration)
	RetryScheduled(service string)
	ObserveFraudScore(service, riskTier string, score float64, manualReview bool)
}

// ProcessUseCase is the worker-side orchestrator: it claims queued entries,
// runs the analysis attempt and drives the retry/backoff state machine.
type ProcessUseCase struct {
	runner  attemptRunner
	queue   ports.QueueRepository
	wakeups ports.MessageQueue
	logger  *slog.Logger

	observer AttemptObserver
	service  string

	maxAttempts       int
	processingTimeout time.Duration
}

func NewProcessUseCase(
	docs ports.DocumentRepository,
	results ports.ResultRepository,
	queue ports.QueueRepository,
	storage ports.ObjectStorage,
	extractor *extract.Service,
	scorer *fraud.Scorer,
	wakeups ports.MessageQueue,
	maxAttempts int,
	processingTimeout time.Duration,
	logger *slog.Logger,
) *ProcessUseCase {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if processingTimeout <= 0 {
		processingTimeout = DefaultProcessingTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessUseCase{
		runner: attemptRunner{
			docs:      docs,
			results:   results,
			storage:   storage,
			extractor: extractor,
			scorer:    scorer,
		},
		queue:             queue,
		wakeups:           wakeups,
		logger:            logger,
		maxAttempts:       maxAttempts,
		processingTimeout: processingTimeout,
	}
}

// WithObserver attaches processing telemetry, reported under the given
// service name.
func (uc *ProcessUseCase) WithObserver(observer AttemptObserver, service string) *ProcessUseCase {
	uc.observer = observer
	uc.service = service
	return uc
}

// ProcessNext claims and processes one document end-to-end. It returns
// domain.ErrNotFound when nothing is claimable, and never lets a document
// failure escape as an inconsistent queue state.
func (uc *ProcessUseCase) ProcessNext(ctx context.Context, nodeID string) error {
	now := time.Now().UTC()
	entry, err := uc.queue.ClaimNext(ctx, nodeID, now)
	if err != nil {
		return err
	}

	if uc.observer != nil {
		uc.observer.StartDocument()
		uc.observer.ObserveQueueLag(uc.service, now.Sub(entry.EnqueuedAt))
	}
	start := time.Now()

	if err := uc.runner.docs.UpdateStatus(ctx, entry.DocumentID, domain.StatusProcessing); err != nil {
		uc.finishObservation(start, err)
		return fmt.Errorf("set document status=processing: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, uc.processingTimeout)
	defer cancel()

	assessment, runErr := uc.processEntry(attemptCtx, entry)
	uc.finishObservation(start, runErr)
	if runErr != nil {
		return uc.fail(ctx, entry, runErr)
	}
	if uc.observer != nil && assessment != nil {
		uc.observer.ObserveFraudScore(uc.service, string(assessment.RiskTier), assessment.FraudScore, assessment.ManualReviewRequired)
	}
	return uc.complete(ctx, entry)
}

func (uc *ProcessUseCase) finishObservation(start time.Time, err error) {
	if uc.observer != nil {
		uc.observer.FinishDocument(uc.service, time.Since(start), err)
	}
}

func (uc *ProcessUseCase) processEntry(ctx context.Context, entry *domain.QueueEntry) (*domain.FraudAssessment, error) {
	doc, err := uc.runner.docs.GetByID(ctx, entry.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return uc.runner.run(ctx, doc)
}

func (uc *ProcessUseCase) complete(ctx context.Context, entry *domain.QueueEntry) error {
	now := time.Now().UTC()
	if err := uc.queue.Complete(ctx, entry.ID, now); err != nil {
		return fmt.Errorf("complete queue entry: %w", err)
	}
	if err := uc.runner.docs.UpdateStatus(ctx, entry.DocumentID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("set document status=completed: %w", err)
	}
	return nil
}

// fail records the attempt outcome and schedules the exponential-backoff
// retry, or parks the entry as permanently failed once attempts are
// exhausted. The processing error is returned for observability; the queue
// state is already consistent.
func (uc *ProcessUseCase) fail(ctx context.Context, entry *domain.QueueEntry, runErr error) error {
	now := time.Now().UTC()
	attempts := entry.Attempts + 1

	var nextRetry *time.Time
	if attempts < uc.maxAttempts {
		at := now.Add(domain.RetryBackoff(attempts))
		nextRetry = &at
	}

	if err := uc.queue.Fail(ctx, entry.ID, runErr.Error(), nextRetry, now); err != nil {
		return fmt.Errorf("%w; record queue failure: %v", runErr, err)
	}
	if err := uc.runner.docs.UpdateStatus(ctx, entry.DocumentID, domain.StatusFailed); err != nil {
		return fmt.Errorf("%w; set document status=failed: %v", runErr, err)
	}

	if nextRetry != nil && uc.observer != nil {
		uc.observer.RetryScheduled(uc.service)
	}

	if nextRetry == nil {
		uc.logger.Error("document permanently failed",
			"document_id", entry.DocumentID, "attempts", attempts, "error", runErr)
	} else {
		uc.logger.Warn("document attempt failed, retry scheduled",
			"document_id", entry.DocumentID, "attempts", attempts,
			"next_retry_at", nextRetry.Format(time.RFC3339), "error", runErr)
	}
	return runErr
}

// Reap requeues failed entries whose retry time has come and reclaims
// processing entries abandoned by a crashed worker. Called periodically by
// the worker loop.
func (uc *ProcessUseCase) Reap(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := uc.queue.DueRetries(ctx, now)
	if err != nil {
		return fmt.Errorf("list due retries: %w", err)
	}
	for _, entry := range due {
		if err := uc.requeue(ctx, entry, "retry due"); err != nil {
			return err
		}
	}

	stale, err := uc.queue.StaleProcessing(ctx, now.Add(-uc.processingTimeout))
	if err != nil {
		return fmt.Errorf("list stale processing entries: %w", err)
	}
	for _, entry := range stale {
		if err := uc.requeue(ctx, entry, "stale processing reclaimed"); err != nil {
			return err
		}
	}
	return nil
}

func (uc *ProcessUseCase) requeue(ctx context.Context, entry domain.QueueEntry, reason string) error {
	if err := uc.queue.Requeue(ctx, entry.ID); err != nil {
		if domain.IsKind(err, domain.ErrQueueConflict) || domain.IsKind(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("requeue entry %s: %w", entry.ID, err)
	}
	if err := uc.runner.docs.UpdateStatus(ctx, entry.DocumentID, domain.StatusPending); err != nil {
		return fmt.Errorf("reset document status: %w", err)
	}
	uc.logger.Info("entry requeued", "document_id", entry.DocumentID, "reason", reason, "attempts", entry.Attempts)
	if err := uc.wakeups.PublishAnalysisRequested(ctx, entry.DocumentID); err != nil {
		uc.logger.Warn("publish wake-up failed", "document_id", entry.DocumentID, "error", err)
	}
	return nil
}
