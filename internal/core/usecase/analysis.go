package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/extract"
	"github.com/pawnlend/docverify/internal/core/fraud"
	"github.com/pawnlend/docverify/internal/core/ports"
)

// AnalysisUseCase is the administrative and read-side surface of the
// pipeline: manual re-analysis, synchronous batch runs, status and results
// queries, queue visibility.
type AnalysisUseCase struct {
	runner  attemptRunner
	queue   ports.QueueRepository
	wakeups ports.MessageQueue
	logger  *slog.Logger
}

func NewAnalysisUseCase(
	docs ports.DocumentRepository,
	results ports.ResultRepository,
	queue ports.QueueRepository,
	storage ports.ObjectStorage,
	extractor *extract.Service,
	scorer *fraud.Scorer,
	wakeups ports.MessageQueue,
	logger *slog.Logger,
) *AnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisUseCase{
		runner: attemptRunner{
			docs:      docs,
			results:   results,
			storage:   storage,
			extractor: extractor,
			scorer:    scorer,
		},
		queue:   queue,
		wakeups: wakeups,
		logger:  logger,
	}
}

// Reanalyze discards prior results and re-admits the document at elevated
// priority. It is a logical reset: a straggling in-flight attempt's output
// is simply superseded.
func (uc *AnalysisUseCase) Reanalyze(ctx context.Context, documentID string) error {
	doc, err := uc.runner.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := uc.runner.results.DeleteForDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete prior results: %w", err)
	}
	if err := uc.runner.docs.UpdateStatus(ctx, documentID, domain.StatusPending); err != nil {
		return fmt.Errorf("reset document status: %w", err)
	}

	priority := doc.Priority
	if priority < domain.PriorityUrgent {
		priority = domain.PriorityUrgent
	}
	entry := &domain.QueueEntry{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Priority:   priority,
		Status:     domain.QueueStatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := uc.queue.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("re-enqueue document: %w", err)
	}
	if err := uc.wakeups.PublishAnalysisRequested(ctx, documentID); err != nil {
		uc.logger.Warn("publish wake-up failed", "document_id", documentID, "error", err)
	}
	return nil
}

// BatchAnalyze runs a synchronous analysis for every document concurrently
// and settles all members: one failure never aborts its siblings.
func (uc *AnalysisUseCase) BatchAnalyze(ctx context.Context, documentIDs []string) (*domain.BatchResult, error) {
	type outcome struct {
		id  string
		err error
	}
	outcomes := make([]outcome, len(documentIDs))

	var wg sync.WaitGroup
	for i, id := range documentIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = outcome{id: id, err: fmt.Errorf("analysis panicked: %v", r)}
				}
			}()
			outcomes[i] = outcome{id: id, err: uc.analyzeOne(ctx, id)}
		}(i, id)
	}
	wg.Wait()

	result := &domain.BatchResult{}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{DocumentID: o.id, Error: o.err.Error()})
			continue
		}
		result.Processed = append(result.Processed, o.id)
	}
	return result, nil
}

// analyzeOne is a synchronous, queue-bypassing attempt used by batch
// re-analysis. The matching queue entry, when present, is settled so the
// operational view stays consistent.
func (uc *AnalysisUseCase) analyzeOne(ctx context.Context, documentID string) error {
	doc, err := uc.runner.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := uc.runner.results.DeleteForDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete prior results: %w", err)
	}
	if err := uc.runner.docs.UpdateStatus(ctx, documentID, domain.StatusProcessing); err != nil {
		return fmt.Errorf("set document status=processing: %w", err)
	}

	_, runErr := uc.runner.run(ctx, doc)
	now := time.Now().UTC()

	if runErr != nil {
		_ = uc.settleEntry(ctx, documentID, runErr, now)
		if err := uc.runner.docs.UpdateStatus(ctx, documentID, domain.StatusFailed); err != nil {
			return fmt.Errorf("%w; set document status=failed: %v", runErr, err)
		}
		return runErr
	}

	_ = uc.settleEntry(ctx, documentID, nil, now)
	if err := uc.runner.docs.UpdateStatus(ctx, documentID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("set document status=completed: %w", err)
	}
	return nil
}

func (uc *AnalysisUseCase) settleEntry(ctx context.Context, documentID string, runErr error, now time.Time) error {
	entry, err := uc.queue.GetByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if runErr != nil {
		return uc.queue.Fail(ctx, entry.ID, runErr.Error(), nil, now)
	}
	return uc.queue.Complete(ctx, entry.ID, now)
}

func (uc *AnalysisUseCase) GetStatus(ctx context.Context, documentID string) (*domain.StatusView, error) {
	doc, err := uc.runner.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	view := &domain.StatusView{
		DocumentID: doc.ID,
		Status:     doc.Status,
	}
	entry, err := uc.queue.GetByDocument(ctx, documentID)
	if err == nil {
		view.Attempts = entry.Attempts
		view.LastError = entry.LastError
		view.NextRetryAt = entry.NextRetryAt
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

func (uc *AnalysisUseCase) GetResults(ctx context.Context, documentID string) (*domain.AnalysisResults, error) {
	return uc.runner.results.GetResults(ctx, documentID)
}

// QueueSnapshot lists entries ordered by priority then enqueue time, for
// operational visibility.
func (uc *AnalysisUseCase) QueueSnapshot(ctx context.Context) ([]domain.QueueEntry, error) {
	entries, err := uc.queue.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})
	return entries, nil
}

// Statistics aggregates queue state counts plus the number of assessments
// flagged for manual review. Read-only.
func (uc *AnalysisUseCase) Statistics(ctx context.Context) (*domain.QueueStatistics, error) {
	counts, err := uc.queue.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count queue entries: %w", err)
	}
	review, err := uc.runner.results.CountManualReview(ctx)
	if err != nil {
		return nil, fmt.Errorf("count manual review assessments: %w", err)
	}

	stats := &domain.QueueStatistics{
		Pending:               counts[domain.QueueStatusQueued],
		Processing:            counts[domain.QueueStatusProcessing],
		Completed:             counts[domain.QueueStatusCompleted],
		Failed:                counts[domain.QueueStatusFailed],
		RequiringManualReview: review,
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	return stats, nil
}
