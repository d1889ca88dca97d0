package domain

import "time"

type QueueStatus string

const (
	QueueStatusQueued     QueueStatus = "queued"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueEntry is the unit of scheduled analysis work. The attempt counter
// only increases; NextRetryAt is set only while the entry is failed and
// retryable.
type QueueEntry struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	Priority    int         `json:"priority"`
	Status      QueueStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"last_error,omitempty"`
	NextRetryAt *time.Time  `json:"next_retry_at,omitempty"`
	NodeID      string      `json:"node_id,omitempty"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Terminal reports whether no further automatic work will happen for the
// entry: completed, or failed with retries exhausted.
func (e *QueueEntry) Terminal(maxAttempts int) bool {
	if e.Status == QueueStatusCompleted {
		return true
	}
	return e.Status == QueueStatusFailed && e.NextRetryAt == nil && e.Attempts >= maxAttempts
}

// RetryBackoff is the canonical retry delay after the given attempt count:
// 2^(attempts-1) minutes.
func RetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(1<<(attempts-1)) * time.Minute
}

// QueueStatistics aggregates pipeline state for operational dashboards.
type QueueStatistics struct {
	Total                 int `json:"total"`
	Pending               int `json:"pending"`
	Processing            int `json:"processing"`
	Completed             int `json:"completed"`
	Failed                int `json:"failed"`
	RequiringManualReview int `json:"requiring_manual_review"`
}
