package ports

import (
	"context"
	"io"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	UpdatePriority(ctx context.Context, id string, priority int) error
}

// ResultRepository persists extraction results and fraud assessments.
// Results are immutable once written; re-analysis deletes and recreates.
type ResultRepository interface {
	SaveExtraction(ctx context.Context, res *domain.ExtractionResult) error
	SaveAssessment(ctx context.Context, a *domain.FraudAssessment) error
	GetResults(ctx context.Context, documentID string) (*domain.AnalysisResults, error)
	DeleteForDocument(ctx context.Context, documentID string) error
	ListManualReview(ctx context.Context, limit int) ([]domain.FraudAssessment, error)
	CountManualReview(ctx context.Context) (int, error)
}

// QueueRepository is the durable source of truth for scheduled work.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry *domain.QueueEntry) error
	// Claim transitions one entry queued->processing. Exactly one caller
	// wins under concurrency; losers get domain.ErrQueueConflict.
	Claim(ctx context.Context, entryID, nodeID string, now time.Time) error
	// ClaimNext claims the queued entry with the highest effective
	// priority (priority plus an age bonus that bounds starvation),
	// FIFO within equal effective priority. domain.ErrNotFound when the
	// queue is empty.
	ClaimNext(ctx context.Context, nodeID string, now time.Time) (*domain.QueueEntry, error)
	Complete(ctx context.Context, entryID string, now time.Time) error
	Fail(ctx context.Context, entryID, lastError string, nextRetryAt *time.Time, now time.Time) error
	// Requeue returns a failed-retryable or stale-processing entry to the
	// queued state, clearing its retry schedule.
	Requeue(ctx context.Context, entryID string) error
	DueRetries(ctx context.Context, now time.Time) ([]domain.QueueEntry, error)
	StaleProcessing(ctx context.Context, olderThan time.Time) ([]domain.QueueEntry, error)
	GetByDocument(ctx context.Context, documentID string) (*domain.QueueEntry, error)
	Snapshot(ctx context.Context) ([]domain.QueueEntry, error)
	CountByStatus(ctx context.Context) (map[domain.QueueStatus]int, error)
}

// ObjectStorage stores raw document bytes and thumbnails.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// BlockExtractor is the external OCR/structured-extraction capability.
type BlockExtractor interface {
	ExtractBlocks(ctx context.Context, data []byte, mimeType string) ([]domain.Block, error)
}

// AsyncBlockExtractor is the optional large-payload path: store the payload
// with the vendor, start a job and poll it to completion.
type AsyncBlockExtractor interface {
	ExtractBlocksAsync(ctx context.Context, data []byte, mimeType string) ([]domain.Block, error)
}

// MessageQueue delivers worker wake-ups. The durable queue state lives in
// QueueRepository; messages are scheduling hints only.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, documentID string) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// Thumbnailer renders a preview image for supported raster formats.
type Thumbnailer interface {
	Thumbnail(data []byte, mimeType string) ([]byte, error)
}
