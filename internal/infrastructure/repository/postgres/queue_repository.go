package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// Aging parameters for the claim ordering: one effective-priority point per
// five minutes of waiting, capped at ten, so low-priority entries cannot
// starve behind a flood of urgent work.
const (
	agingStepSeconds = 300
	agingCap         = 10
)

type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue inserts the entry, replacing any previous entry for the same
// document: re-analysis resets the schedule.
func (r *QueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO queue_entries (id, document_id, priority, status, attempts, last_error, enqueued_at)
VALUES ($1,$2,$3,$4,0,'',$5)
ON CONFLICT (document_id) DO UPDATE SET
	id = EXCLUDED.id,
	priority = EXCLUDED.priority,
	status = EXCLUDED.status,
	attempts = 0,
	last_error = '',
	next_retry_at = NULL,
	node_id = '',
	enqueued_at = EXCLUDED.enqueued_at,
	started_at = NULL,
	completed_at = NULL
`, entry.ID, entry.DocumentID, entry.Priority, string(entry.Status), entry.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("enqueue entry: %w", err)
	}
	return nil
}

// Claim is the atomic queued->processing transition: the conditional update
// succeeds for exactly one concurrent caller.
func (r *QueueRepository) Claim(ctx context.Context, entryID, nodeID string, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_entries
SET status = $2, node_id = $3, started_at = $4
WHERE id = $1 AND status = $5
`, entryID, string(domain.QueueStatusProcessing), nodeID, now, string(domain.QueueStatusQueued))
	if err != nil {
		return fmt.Errorf("claim entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim entry rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrQueueConflict, "claim entry",
			fmt.Errorf("entry %s is not queued", entryID))
	}
	return nil
}

// ClaimNext atomically claims the queued entry with the highest effective
// priority; FOR UPDATE SKIP LOCKED keeps concurrent workers off the same
// row.
func (r *QueueRepository) ClaimNext(ctx context.Context, nodeID string, now time.Time) (*domain.QueueEntry, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
UPDATE queue_entries
SET status = $1, node_id = $2, started_at = $3
WHERE id = (
	SELECT id FROM queue_entries
	WHERE status = $4
	ORDER BY priority + LEAST(FLOOR(EXTRACT(EPOCH FROM ($3 - enqueued_at)) / %d), %d) DESC, enqueued_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING id, document_id, priority, status, attempts, last_error, next_retry_at, node_id, enqueued_at, started_at, completed_at
`, agingStepSeconds, agingCap),
		string(domain.QueueStatusProcessing), nodeID, now, string(domain.QueueStatusQueued))

	entry, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "claim next", errors.New("queue empty"))
		}
		return nil, fmt.Errorf("claim next entry: %w", err)
	}
	return entry, nil
}

func (r *QueueRepository) Complete(ctx context.Context, entryID string, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_entries
SET status = $2, completed_at = $3, next_retry_at = NULL
WHERE id = $1
`, entryID, string(domain.QueueStatusCompleted), now)
	if err != nil {
		return fmt.Errorf("complete entry: %w", err)
	}
	return requireRow(result, "complete entry", entryID)
}

func (r *QueueRepository) Fail(ctx context.Context, entryID, lastError string, nextRetryAt *time.Time, _ time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_entries
SET status = $2, attempts = attempts + 1, last_error = $3, next_retry_at = $4
WHERE id = $1
`, entryID, string(domain.QueueStatusFailed), lastError, nextRetryAt)
	if err != nil {
		return fmt.Errorf("fail entry: %w", err)
	}
	return requireRow(result, "fail entry", entryID)
}

// Requeue returns a non-completed entry to the queued state.
func (r *QueueRepository) Requeue(ctx context.Context, entryID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE queue_entries
SET status = $2, next_retry_at = NULL, node_id = '', started_at = NULL
WHERE id = $1 AND status <> $3
`, entryID, string(domain.QueueStatusQueued), string(domain.QueueStatusCompleted))
	if err != nil {
		return fmt.Errorf("requeue entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("requeue entry rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrQueueConflict, "requeue entry",
			fmt.Errorf("entry %s not requeueable", entryID))
	}
	return nil
}

func (r *QueueRepository) DueRetries(ctx context.Context, now time.Time) ([]domain.QueueEntry, error) {
	return r.list(ctx, `
SELECT id, document_id, priority, status, attempts, last_error, next_retry_at, node_id, enqueued_at, started_at, completed_at
FROM queue_entries
WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2
ORDER BY next_retry_at
`, string(domain.QueueStatusFailed), now)
}

func (r *QueueRepository) StaleProcessing(ctx context.Context, olderThan time.Time) ([]domain.QueueEntry, error) {
	return r.list(ctx, `
SELECT id, document_id, priority, status, attempts, last_error, next_retry_at, node_id, enqueued_at, started_at, completed_at
FROM queue_entries
WHERE status = $1 AND started_at IS NOT NULL AND started_at < $2
ORDER BY started_at
`, string(domain.QueueStatusProcessing), olderThan)
}

func (r *QueueRepository) GetByDocument(ctx context.Context, documentID string) (*domain.QueueEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, priority, status, attempts, last_error, next_retry_at, node_id, enqueued_at, started_at, completed_at
FROM queue_entries
WHERE document_id = $1
`, documentID)

	entry, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get entry by document", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("get entry by document: %w", err)
	}
	return entry, nil
}

func (r *QueueRepository) Snapshot(ctx context.Context) ([]domain.QueueEntry, error) {
	return r.list(ctx, `
SELECT id, document_id, priority, status, attempts, last_error, next_retry_at, node_id, enqueued_at, started_at, completed_at
FROM queue_entries
ORDER BY enqueued_at
`)
}

func (r *QueueRepository) CountByStatus(ctx context.Context) (map[domain.QueueStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_entries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count entries by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.QueueStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.QueueStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *QueueRepository) list(ctx context.Context, query string, args ...any) ([]domain.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QueueEntry, 0)
	for rows.Next() {
		entry, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue entries: %w", err)
	}
	return out, nil
}

type entryScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row entryScanner) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry
	var status string
	var nextRetry, started, completed sql.NullTime

	err := row.Scan(
		&entry.ID, &entry.DocumentID, &entry.Priority, &status, &entry.Attempts,
		&entry.LastError, &nextRetry, &entry.NodeID, &entry.EnqueuedAt, &started, &completed,
	)
	if err != nil {
		return nil, err
	}

	entry.Status = domain.QueueStatus(status)
	if nextRetry.Valid {
		t := nextRetry.Time
		entry.NextRetryAt = &t
	}
	if started.Valid {
		t := started.Time
		entry.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		entry.CompletedAt = &t
	}
	return &entry, nil
}
