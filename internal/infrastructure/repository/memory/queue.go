package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
)

func errID(id string) error { return errors.New("id=" + id) }

// Enqueue inserts the entry, replacing any previous entry for the same
// document (re-analysis resets the schedule).
func (s *Store) Enqueue(_ context.Context, entry *domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.entries {
		if existing.DocumentID == entry.DocumentID {
			delete(s.entries, id)
		}
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

// Claim transitions queued->processing for exactly one caller; every other
// concurrent caller gets domain.ErrQueueConflict.
func (s *Store) Claim(_ context.Context, entryID, nodeID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimLocked(entryID, nodeID, now)
}

func (s *Store) claimLocked(entryID, nodeID string, now time.Time) error {
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "claim entry", errID(entryID))
	}
	if entry.Status != domain.QueueStatusQueued {
		return domain.WrapError(domain.ErrQueueConflict, "claim entry",
			fmt.Errorf("entry %s is %s", entryID, entry.Status))
	}
	entry.Status = domain.QueueStatusProcessing
	entry.NodeID = nodeID
	started := now
	entry.StartedAt = &started
	return nil
}

// effectivePriority adds the age bonus that bounds starvation.
func (s *Store) effectivePriority(entry *domain.QueueEntry, now time.Time) int {
	bonus := int(now.Sub(entry.EnqueuedAt) / s.AgingStep)
	if bonus > s.AgingCap {
		bonus = s.AgingCap
	}
	if bonus < 0 {
		bonus = 0
	}
	return entry.Priority + bonus
}

func (s *Store) ClaimNext(_ context.Context, nodeID string, now time.Time) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var queued []*domain.QueueEntry
	for _, entry := range s.entries {
		if entry.Status == domain.QueueStatusQueued {
			queued = append(queued, entry)
		}
	}
	if len(queued) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "claim next", errors.New("queue empty"))
	}
	sort.SliceStable(queued, func(i, j int) bool {
		pi, pj := s.effectivePriority(queued[i], now), s.effectivePriority(queued[j], now)
		if pi != pj {
			return pi > pj
		}
		return queued[i].EnqueuedAt.Before(queued[j].EnqueuedAt)
	})

	winner := queued[0]
	if err := s.claimLocked(winner.ID, nodeID, now); err != nil {
		return nil, err
	}
	cp := *winner
	return &cp, nil
}

func (s *Store) Complete(_ context.Context, entryID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "complete entry", errID(entryID))
	}
	entry.Status = domain.QueueStatusCompleted
	done := now
	entry.CompletedAt = &done
	entry.NextRetryAt = nil
	return nil
}

func (s *Store) Fail(_ context.Context, entryID, lastError string, nextRetryAt *time.Time, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fail entry", errID(entryID))
	}
	entry.Status = domain.QueueStatusFailed
	entry.Attempts++
	entry.LastError = lastError
	entry.NextRetryAt = nextRetryAt
	return nil
}

func (s *Store) Requeue(_ context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "requeue entry", errID(entryID))
	}
	if entry.Status == domain.QueueStatusCompleted {
		return domain.WrapError(domain.ErrQueueConflict, "requeue entry",
			fmt.Errorf("entry %s already completed", entryID))
	}
	entry.Status = domain.QueueStatusQueued
	entry.NextRetryAt = nil
	entry.NodeID = ""
	entry.StartedAt = nil
	return nil
}

func (s *Store) DueRetries(_ context.Context, now time.Time) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, entry := range s.entries {
		if entry.Status == domain.QueueStatusFailed && entry.NextRetryAt != nil && !entry.NextRetryAt.After(now) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *Store) StaleProcessing(_ context.Context, olderThan time.Time) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, entry := range s.entries {
		if entry.Status == domain.QueueStatusProcessing && entry.StartedAt != nil && entry.StartedAt.Before(olderThan) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *Store) GetByDocument(_ context.Context, documentID string) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.DocumentID == documentID {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get entry by document", errID(documentID))
}

func (s *Store) Snapshot(_ context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QueueEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[domain.QueueStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.QueueStatus]int)
	for _, entry := range s.entries {
		counts[entry.Status]++
	}
	return counts, nil
}
