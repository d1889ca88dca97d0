package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/extract"
	"github.com/pawnlend/docverify/internal/core/fraud"
	"github.com/pawnlend/docverify/internal/core/ports"
)

// attemptRunner executes one end-to-end analysis attempt for a document:
// read bytes, extract, persist the extraction, assess, persist the
// assessment. The extraction is always persisted before assessment is
// attempted; the scorer's input is the extractor's output.
type attemptRunner struct {
	docs      ports.DocumentRepository
	results   ports.ResultRepository
	storage   ports.ObjectStorage
	extractor *extract.Service
	scorer    *fraud.Scorer
}

func (r *attemptRunner) run(ctx context.Context, doc *domain.Document) (*domain.FraudAssessment, error) {
	data, err := r.readBytes(ctx, doc.StoragePath)
	if err != nil {
		return nil, err
	}

	res, extractErr := r.extractor.Analyze(ctx, doc.ID, data, doc.MimeType, doc.Category)
	if res != nil {
		// Partial outcomes are recorded even when extraction failed,
		// so the error message survives for audit.
		if err := r.results.SaveExtraction(ctx, res); err != nil {
			return nil, fmt.Errorf("save extraction result: %w", err)
		}
	}
	if extractErr != nil {
		return nil, extractErr
	}

	assessment, err := r.scorer.Assess(ctx, res, data, doc.MimeType, doc.Category)
	if err != nil {
		return nil, err
	}
	if err := r.results.SaveAssessment(ctx, assessment); err != nil {
		return nil, fmt.Errorf("save fraud assessment: %w", err)
	}
	return assessment, nil
}

func (r *attemptRunner) readBytes(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	return data, nil
}
