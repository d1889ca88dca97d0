package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/ports"
	"github.com/pawnlend/docverify/internal/core/validate"
)

// Options tune block post-processing and the sync/async split.
type Options struct {
	// WordConfidenceThreshold drops word boxes below this confidence.
	WordConfidenceThreshold float64
	// SyncMaxBytes is the largest payload sent through the synchronous
	// vendor path; larger payloads require the async job path.
	SyncMaxBytes int64
}

func DefaultOptions() Options {
	return Options{
		WordConfidenceThreshold: 0.80,
		SyncMaxBytes:            10 << 20,
	}
}

func (o Options) normalize() Options {
	out := o
	def := DefaultOptions()
	if out.WordConfidenceThreshold <= 0 || out.WordConfidenceThreshold > 1 {
		out.WordConfidenceThreshold = def.WordConfidenceThreshold
	}
	if out.SyncMaxBytes <= 0 {
		out.SyncMaxBytes = def.SyncMaxBytes
	}
	return out
}

// Service turns raw document bytes into a normalized ExtractionResult by
// delegating OCR to an external block extractor and post-processing its
// output.
type Service struct {
	vendor      ports.BlockExtractor
	asyncVendor ports.AsyncBlockExtractor
	opts        Options
}

// NewService builds an extractor. asyncVendor may be nil; payloads above the
// sync threshold then fail with domain.ErrPayloadTooLarge.
func NewService(vendor ports.BlockExtractor, asyncVendor ports.AsyncBlockExtractor, opts Options) *Service {
	return &Service{
		vendor:      vendor,
		asyncVendor: asyncVendor,
		opts:        opts.normalize(),
	}
}

// Analyze runs OCR and normalization for one document attempt.
//
// Vendor failures are reported twice on purpose: the returned result carries
// the error message so a partial outcome can still be persisted, and the
// returned error drives the retry state machine.
func (s *Service) Analyze(ctx context.Context, documentID string, data []byte, mimeType string, category domain.DocumentCategory) (*domain.ExtractionResult, error) {
	start := time.Now()
	res := &domain.ExtractionResult{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		CreatedAt:  start.UTC(),
	}

	if !validate.Supported(mimeType) {
		err := domain.WrapError(domain.ErrUnsupportedFormat, "analyze document", fmt.Errorf("mime type %q", mimeType))
		res.ErrorMessage = err.Error()
		res.Duration = time.Since(start)
		return res, err
	}

	blocks, err := s.extractBlocks(ctx, data, mimeType)
	if err != nil {
		err = classifyVendorError(err)
		res.ErrorMessage = err.Error()
		res.Duration = time.Since(start)
		return res, err
	}

	normalized := normalizeBlocks(blocks, s.opts.WordConfidenceThreshold)
	res.Text = normalized.text
	res.Words = normalized.words
	res.Tables = normalized.tables
	res.KeyValues = normalized.keyValues
	res.Confidence = normalized.confidence
	res.Fields = ExtractFields(res.Text, category)
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Service) extractBlocks(ctx context.Context, data []byte, mimeType string) ([]domain.Block, error) {
	if int64(len(data)) <= s.opts.SyncMaxBytes {
		return s.vendor.ExtractBlocks(ctx, data, mimeType)
	}
	if s.asyncVendor == nil {
		return nil, domain.WrapError(domain.ErrPayloadTooLarge, "extract blocks",
			fmt.Errorf("payload of %d bytes exceeds sync limit %d and no async path is configured", len(data), s.opts.SyncMaxBytes))
	}
	return s.asyncVendor.ExtractBlocksAsync(ctx, data, mimeType)
}

func classifyVendorError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.WrapError(domain.ErrExtractionTimeout, "extract blocks", err)
	case domain.IsKind(err, domain.ErrPayloadTooLarge),
		domain.IsKind(err, domain.ErrExtractionTimeout),
		domain.IsKind(err, domain.ErrUnsupportedFormat):
		return err
	default:
		return domain.WrapError(domain.ErrExtraction, "extract blocks", err)
	}
}
