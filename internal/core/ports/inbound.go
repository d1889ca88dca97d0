package ports

import (
	"context"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// IngestRequest is the inbound payload for document submission.
type IngestRequest struct {
	Data         []byte
	Filename     string
	DeclaredMIME string
	SubmissionID string
	UploaderID   string
	Category     domain.DocumentCategory
	Priority     int
	Metadata     map[string]string
}

// DocumentIngestor validates and admits an upload into the pipeline.
type DocumentIngestor interface {
	Ingest(ctx context.Context, req IngestRequest) (*domain.Document, error)
}

// AnalysisProcessor is the worker-side contract.
type AnalysisProcessor interface {
	// ProcessNext claims and fully processes one document. Returns
	// domain.ErrNotFound when nothing is claimable.
	ProcessNext(ctx context.Context, nodeID string) error
	// Reap requeues due retries and reclaims stale processing entries.
	Reap(ctx context.Context) error
}

// AnalysisService is the administrative/read contract.
type AnalysisService interface {
	Reanalyze(ctx context.Context, documentID string) error
	BatchAnalyze(ctx context.Context, documentIDs []string) (*domain.BatchResult, error)
	GetStatus(ctx context.Context, documentID string) (*domain.StatusView, error)
	GetResults(ctx context.Context, documentID string) (*domain.AnalysisResults, error)
	QueueSnapshot(ctx context.Context) ([]domain.QueueEntry, error)
	Statistics(ctx context.Context) (*domain.QueueStatistics, error)
}
