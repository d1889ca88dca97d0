package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) SaveExtraction(ctx context.Context, res *domain.ExtractionResult) error {
	kvJSON, err := json.Marshal(emptySlice(res.KeyValues))
	if err != nil {
		return fmt.Errorf("marshal key values: %w", err)
	}
	tablesJSON, err := json.Marshal(emptySlice(res.Tables))
	if err != nil {
		return fmt.Errorf("marshal tables: %w", err)
	}
	wordsJSON, err := json.Marshal(emptySlice(res.Words))
	if err != nil {
		return fmt.Errorf("marshal words: %w", err)
	}
	fieldsJSON, err := json.Marshal(res.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO extraction_results (
	id, document_id, ocr_text, key_values, tables, words, fields,
	confidence, duration_ms, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		res.ID, res.DocumentID, res.Text, kvJSON, tablesJSON, wordsJSON, fieldsJSON,
		res.Confidence, res.Duration.Milliseconds(), res.ErrorMessage, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction result: %w", err)
	}
	return nil
}

func (r *ResultRepository) SaveAssessment(ctx context.Context, a *domain.FraudAssessment) error {
	issuesJSON, err := json.Marshal(emptySlice(a.Issues))
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata analysis: %w", err)
	}
	matchesJSON, err := json.Marshal(emptySlice(a.PatternMatches))
	if err != nil {
		return fmt.Errorf("marshal pattern matches: %w", err)
	}
	checksJSON, err := json.Marshal(emptySlice(a.CrossReferenceChecks))
	if err != nil {
		return fmt.Errorf("marshal cross reference checks: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO fraud_assessments (
	id, document_id, extraction_id, fraud_score, risk_tier, authenticity_score,
	issues, tampering_detected, metadata, pattern_matches, cross_reference_checks,
	confidence, manual_review_required, review_notes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		a.ID, a.DocumentID, a.ExtractionID, a.FraudScore, string(a.RiskTier), a.AuthenticityScore,
		issuesJSON, a.TamperingDetected, metaJSON, matchesJSON, checksJSON,
		a.Confidence, a.ManualReviewRequired, a.ReviewNotes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fraud assessment: %w", err)
	}
	return nil
}

// GetResults returns the latest extraction for the document and, when
// present, its paired assessment.
func (r *ResultRepository) GetResults(ctx context.Context, documentID string) (*domain.AnalysisResults, error) {
	ext, err := r.latestExtraction(ctx, documentID)
	if err != nil {
		return nil, err
	}

	out := &domain.AnalysisResults{Extraction: ext}

	a, err := r.assessmentForExtraction(ctx, ext.ID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}
	out.Assessment = a
	return out, nil
}

func (r *ResultRepository) latestExtraction(ctx context.Context, documentID string) (*domain.ExtractionResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, ocr_text, key_values, tables, words, fields,
	confidence, duration_ms, error_message, created_at
FROM extraction_results
WHERE document_id = $1
ORDER BY created_at DESC
LIMIT 1
`, documentID)

	var res domain.ExtractionResult
	var kvRaw, tablesRaw, wordsRaw, fieldsRaw []byte
	var durationMS int64

	err := row.Scan(
		&res.ID, &res.DocumentID, &res.Text, &kvRaw, &tablesRaw, &wordsRaw, &fieldsRaw,
		&res.Confidence, &durationMS, &res.ErrorMessage, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get extraction result", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("scan extraction result: %w", err)
	}

	if err := json.Unmarshal(kvRaw, &res.KeyValues); err != nil {
		return nil, fmt.Errorf("unmarshal key values: %w", err)
	}
	if err := json.Unmarshal(tablesRaw, &res.Tables); err != nil {
		return nil, fmt.Errorf("unmarshal tables: %w", err)
	}
	if err := json.Unmarshal(wordsRaw, &res.Words); err != nil {
		return nil, fmt.Errorf("unmarshal words: %w", err)
	}
	if err := json.Unmarshal(fieldsRaw, &res.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	res.Duration = time.Duration(durationMS) * time.Millisecond
	return &res, nil
}

func (r *ResultRepository) assessmentForExtraction(ctx context.Context, extractionID string) (*domain.FraudAssessment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, extraction_id, fraud_score, risk_tier, authenticity_score,
	issues, tampering_detected, metadata, pattern_matches, cross_reference_checks,
	confidence, manual_review_required, review_notes, created_at
FROM fraud_assessments
WHERE extraction_id = $1
ORDER BY created_at DESC
LIMIT 1
`, extractionID)
	return scanAssessment(row)
}

type assessmentScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row assessmentScanner) (*domain.FraudAssessment, error) {
	var a domain.FraudAssessment
	var tier string
	var issuesRaw, metaRaw, matchesRaw, checksRaw []byte

	err := row.Scan(
		&a.ID, &a.DocumentID, &a.ExtractionID, &a.FraudScore, &tier, &a.AuthenticityScore,
		&issuesRaw, &a.TamperingDetected, &metaRaw, &matchesRaw, &checksRaw,
		&a.Confidence, &a.ManualReviewRequired, &a.ReviewNotes, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get fraud assessment", err)
		}
		return nil, fmt.Errorf("scan fraud assessment: %w", err)
	}

	if err := json.Unmarshal(issuesRaw, &a.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	if err := json.Unmarshal(metaRaw, &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata analysis: %w", err)
	}
	if err := json.Unmarshal(matchesRaw, &a.PatternMatches); err != nil {
		return nil, fmt.Errorf("unmarshal pattern matches: %w", err)
	}
	if err := json.Unmarshal(checksRaw, &a.CrossReferenceChecks); err != nil {
		return nil, fmt.Errorf("unmarshal cross reference checks: %w", err)
	}
	a.RiskTier = domain.RiskTier(tier)
	return &a, nil
}

// DeleteForDocument removes all results prior to re-analysis.
func (r *ResultRepository) DeleteForDocument(ctx context.Context, documentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fraud_assessments WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete fraud assessments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM extraction_results WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete extraction results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) ListManualReview(ctx context.Context, limit int) ([]domain.FraudAssessment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, extraction_id, fraud_score, risk_tier, authenticity_score,
	issues, tampering_detected, metadata, pattern_matches, cross_reference_checks,
	confidence, manual_review_required, review_notes, created_at
FROM fraud_assessments
WHERE manual_review_required
ORDER BY fraud_score DESC, created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list manual review assessments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FraudAssessment, 0)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func (r *ResultRepository) CountManualReview(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fraud_assessments WHERE manual_review_required`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count manual review assessments: %w", err)
	}
	return n, nil
}

// emptySlice keeps JSON columns as [] instead of null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
