package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/ports"
	"github.com/pawnlend/docverify/internal/core/validate"
)

// IngestUseCase validates an upload, persists bytes and metadata and admits
// the document into the analysis queue.
type IngestUseCase struct {
	docs    ports.DocumentRepository
	queue   ports.QueueRepository
	storage ports.ObjectStorage
	wakeups ports.MessageQueue
	thumbs  ports.Thumbnailer
	logger  *slog.Logger
}

func NewIngestUseCase(
	docs ports.DocumentRepository,
	queue ports.QueueRepository,
	storage ports.ObjectStorage,
	wakeups ports.MessageQueue,
	thumbs ports.Thumbnailer,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		docs:    docs,
		queue:   queue,
		storage: storage,
		wakeups: wakeups,
		thumbs:  thumbs,
		logger:  logger,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, req ports.IngestRequest) (*domain.Document, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	info, err := validate.CheckFile(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(req.Data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:           id,
		SubmissionID: req.SubmissionID,
		UploaderID:   req.UploaderID,
		Category:     req.Category,
		Filename:     req.Filename,
		MimeType:     info.DetectedType,
		StoragePath:  storageKey,
		SizeBytes:    info.Size,
		Checksum:     info.Checksum,
		Status:       domain.StatusPending,
		Priority:     req.Priority,
		Metadata:     req.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	doc.ThumbnailPath = uc.saveThumbnail(ctx, id, req.Data, info.DetectedType)

	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	entry := &domain.QueueEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Priority:   doc.Priority,
		Status:     domain.QueueStatusQueued,
		EnqueuedAt: now,
	}
	if err := uc.queue.Enqueue(ctx, entry); err != nil {
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}

	// The durable queue is the source of truth; a missed wake-up is
	// recovered by the reaper loop.
	if err := uc.wakeups.PublishAnalysisRequested(ctx, doc.ID); err != nil {
		uc.logger.Warn("publish wake-up failed", "document_id", doc.ID, "error", err)
	}

	return doc, nil
}

// saveThumbnail renders and stores a preview for raster formats. Failure is
// non-fatal: the document proceeds without one.
func (uc *IngestUseCase) saveThumbnail(ctx context.Context, id string, data []byte, mimeType string) string {
	if uc.thumbs == nil || !strings.HasPrefix(mimeType, "image/") {
		return ""
	}
	thumb, err := uc.thumbs.Thumbnail(data, mimeType)
	if err != nil {
		uc.logger.Warn("thumbnail generation failed", "document_id", id, "error", err)
		return ""
	}
	key := id + "_thumb.jpg"
	if err := uc.storage.Save(ctx, key, bytes.NewReader(thumb)); err != nil {
		uc.logger.Warn("thumbnail save failed", "document_id", id, "error", err)
		return ""
	}
	return key
}

func checkRequest(req ports.IngestRequest) error {
	var reasons []string
	if strings.TrimSpace(req.SubmissionID) == "" {
		reasons = append(reasons, "submission id is required")
	}
	if strings.TrimSpace(req.UploaderID) == "" {
		reasons = append(reasons, "uploader id is required")
	}
	if strings.TrimSpace(req.Filename) == "" {
		reasons = append(reasons, "filename is required")
	}
	if !domain.ValidCategory(req.Category) {
		reasons = append(reasons, fmt.Sprintf("unknown document category %q", req.Category))
	}
	if req.Priority < 0 {
		reasons = append(reasons, "priority must not be negative")
	}
	if len(reasons) > 0 {
		return &domain.ValidationError{Reasons: reasons}
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
