package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pawnlend/docverify/internal/core/domain"
)

func newQueueRepoWithMock(t *testing.T) (*QueueRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &QueueRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestClaimConflictWhenNotQueued(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE queue_entries").
		WithArgs("e1", string(domain.QueueStatusProcessing), "node-1", now, string(domain.QueueStatusQueued)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Claim(context.Background(), "e1", "node-1", now)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrQueueConflict) {
		t.Fatalf("expected ErrQueueConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimSucceedsForQueuedEntry(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE queue_entries").
		WithArgs("e1", string(domain.QueueStatusProcessing), "node-1", now, string(domain.QueueStatusQueued)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Claim(context.Background(), "e1", "node-1", now); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimNextEmptyQueueReturnsNotFound(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	mock.ExpectQuery("UPDATE queue_entries").
		WithArgs(string(domain.QueueStatusProcessing), "node-1", sqlmock.AnyArg(), string(domain.QueueStatusQueued)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ClaimNext(context.Background(), "node-1", time.Now().UTC())
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimNextScansEntry(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "priority", "status", "attempts", "last_error",
		"next_retry_at", "node_id", "enqueued_at", "started_at", "completed_at",
	}).AddRow("e1", "doc-1", 5, "processing", 0, "", nil, "node-1", now.Add(-time.Minute), now, nil)

	mock.ExpectQuery("UPDATE queue_entries").
		WithArgs(string(domain.QueueStatusProcessing), "node-1", now, string(domain.QueueStatusQueued)).
		WillReturnRows(rows)

	entry, err := repo.ClaimNext(context.Background(), "node-1", now)
	if err != nil {
		t.Fatalf("ClaimNext() error = %v", err)
	}
	if entry.ID != "e1" || entry.Status != domain.QueueStatusProcessing {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.NextRetryAt != nil || entry.CompletedAt != nil {
		t.Fatalf("NULL timestamps must scan to nil, got %+v", entry)
	}
	if entry.StartedAt == nil || !entry.StartedAt.Equal(now) {
		t.Fatalf("unexpected started_at: %v", entry.StartedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRequeueConflictOnCompletedEntry(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE queue_entries").
		WithArgs("e1", string(domain.QueueStatusQueued), string(domain.QueueStatusCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Requeue(context.Background(), "e1")
	if !domain.IsKind(err, domain.ErrQueueConflict) {
		t.Fatalf("expected ErrQueueConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountByStatusAggregates(t *testing.T) {
	repo, mock, done := newQueueRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("queued", 3).
		AddRow("failed", 1)

	mock.ExpectQuery("SELECT status, COUNT").WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts[domain.QueueStatusQueued] != 3 || counts[domain.QueueStatusFailed] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
