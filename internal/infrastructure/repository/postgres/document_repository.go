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

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, submission_id, uploader_id, category, filename, mime_type, storage_path,
	thumbnail_path, size_bytes, checksum, status, priority, metadata, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.SubmissionID, doc.UploaderID, string(doc.Category), doc.Filename, doc.MimeType,
		doc.StoragePath, doc.ThumbnailPath, doc.SizeBytes, doc.Checksum, string(doc.Status),
		doc.Priority, metaJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, submission_id, uploader_id, category, filename, mime_type, storage_path,
	thumbnail_path, size_bytes, checksum, status, priority, metadata, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var category, status string
	var thumbnail sql.NullString
	var metaRaw []byte

	err := row.Scan(
		&doc.ID, &doc.SubmissionID, &doc.UploaderID, &category, &doc.Filename, &doc.MimeType,
		&doc.StoragePath, &thumbnail, &doc.SizeBytes, &doc.Checksum, &status, &doc.Priority,
		&metaRaw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal(metaRaw, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	doc.Category = domain.DocumentCategory(category)
	doc.Status = domain.DocumentStatus(status)
	doc.ThumbnailPath = thumbnail.String
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(result, "update document status", id)
}

func (r *DocumentRepository) UpdatePriority(ctx context.Context, id string, priority int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET priority = $2, updated_at = $3
WHERE id = $1
`, id, priority, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document priority: %w", err)
	}
	return requireRow(result, "update document priority", id)
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
