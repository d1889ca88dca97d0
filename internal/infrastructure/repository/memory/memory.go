package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// Store is an in-memory implementation of the document, result and queue
// repositories. It backs unit tests and single-process local runs; the
// postgres repositories are the production counterparts.
type Store struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	extractions map[string]*domain.ExtractionResult
	assessments map[string]*domain.FraudAssessment
	entries     map[string]*domain.QueueEntry

	// AgingStep grants one effective-priority point per elapsed step so
	// old low-priority entries cannot starve; AgingCap bounds the bonus.
	AgingStep time.Duration
	AgingCap  int
}

func NewStore() *Store {
	return &Store{
		docs:        make(map[string]*domain.Document),
		extractions: make(map[string]*domain.ExtractionResult),
		assessments: make(map[string]*domain.FraudAssessment),
		entries:     make(map[string]*domain.QueueEntry),
		AgingStep:   5 * time.Minute,
		AgingCap:    10,
	}
}

func (s *Store) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", errID(id))
	}
	cp := *doc
	return &cp, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update document status", errID(id))
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdatePriority(_ context.Context, id string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update document priority", errID(id))
	}
	doc.Priority = priority
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SaveExtraction(_ context.Context, res *domain.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *res
	s.extractions[res.DocumentID] = &cp
	return nil
}

func (s *Store) SaveAssessment(_ context.Context, a *domain.FraudAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assessments[a.DocumentID] = &cp
	return nil
}

func (s *Store) GetResults(_ context.Context, documentID string) (*domain.AnalysisResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext, okExt := s.extractions[documentID]
	if !okExt {
		return nil, domain.WrapError(domain.ErrNotFound, "get results", errID(documentID))
	}
	out := &domain.AnalysisResults{}
	cpExt := *ext
	out.Extraction = &cpExt
	if a, ok := s.assessments[documentID]; ok {
		cpA := *a
		out.Assessment = &cpA
	}
	return out, nil
}

func (s *Store) DeleteForDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.extractions, documentID)
	delete(s.assessments, documentID)
	return nil
}

func (s *Store) ListManualReview(_ context.Context, limit int) ([]domain.FraudAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FraudAssessment
	for _, a := range s.assessments {
		if a.ManualReviewRequired {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FraudScore > out[j].FraudScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountManualReview(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.assessments {
		if a.ManualReviewRequired {
			n++
		}
	}
	return n, nil
}
