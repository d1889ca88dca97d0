package fraud

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// DefaultReviewThreshold is the fraud score at which manual review becomes
// mandatory.
const DefaultReviewThreshold = 0.5

// Scorer runs the independent fraud detectors and aggregates their findings
// into a single assessment. Fraud is a normal outcome expressed in the
// score; Assess only errors on unusable input.
type Scorer struct {
	ref             *Reference
	reviewThreshold float64
}

func NewScorer(ref *Reference, reviewThreshold float64) *Scorer {
	if reviewThreshold <= 0 || reviewThreshold > 1 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &Scorer{ref: ref, reviewThreshold: reviewThreshold}
}

// Assess scores one extraction attempt. The extraction must be the outcome
// of a successful run for the same attempt; assessments are never produced
// without one.
func (s *Scorer) Assess(ctx context.Context, res *domain.ExtractionResult, data []byte, mimeType string, category domain.DocumentCategory) (*domain.FraudAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrAssessment, "assess document", err)
	}
	if !res.Usable() {
		return nil, domain.WrapError(domain.ErrAssessment, "assess document",
			errors.New("no usable extraction result for this attempt"))
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrAssessment, "assess document",
			errors.New("document bytes unavailable"))
	}

	var issues []domain.FraudIssue
	issues = append(issues, s.detectTextPatterns(res)...)
	issues = append(issues, s.detectMissingElements(res, category)...)

	meta := analyzeMetadata(data, mimeType)
	if meta.SuspiciousMetadata {
		issues = append(issues, metadataIssue(meta))
	}

	knownMatches, knownIssues := s.matchKnownPatterns(res)
	issues = append(issues, knownIssues...)

	layoutMatches, layoutIssues := s.matchTemplateLayout(res, category)
	issues = append(issues, layoutIssues...)

	checks, checkIssues := s.runCrossReferenceChecks(res, category)
	issues = append(issues, checkIssues...)

	matches := append(knownMatches, layoutMatches...)

	score := aggregateScore(issues, meta, matches)
	tier := domain.RiskTierFor(score)
	review := score >= s.reviewThreshold || hasCritical(issues)

	a := &domain.FraudAssessment{
		ID:                   uuid.NewString(),
		DocumentID:           res.DocumentID,
		ExtractionID:         res.ID,
		FraudScore:           score,
		RiskTier:             tier,
		AuthenticityScore:    math.Max(0, 1-score),
		Issues:               issues,
		TamperingDetected:    meta.SuspiciousMetadata,
		Metadata:             meta,
		PatternMatches:       matches,
		CrossReferenceChecks: checks,
		Confidence:           assessmentConfidence(res.Confidence, issues),
		ManualReviewRequired: review,
		ReviewNotes:          reviewNotes(score, tier, issues),
		CreatedAt:            time.Now().UTC(),
	}
	return a, nil
}

// aggregateScore reproduces the canonical weighting exactly so scores stay
// comparable across releases:
//
//	each issue adds severityWeight*confidence to both sum and weight;
//	clean metadata multiplies the sum by 0.8, suspicious metadata adds a
//	flat 0.3 to both; every pattern match above 0.7 adds 0.4 to both;
//	final score = clamp(sum / max(weight, 1)) rounded to 3 decimals.
func aggregateScore(issues []domain.FraudIssue, meta domain.MetadataAnalysis, matches []domain.PatternMatch) float64 {
	var sum, weight float64
	for _, issue := range issues {
		contribution := domain.SeverityWeight(issue.Severity) * issue.Confidence
		sum += contribution
		weight += contribution
	}

	if meta.SuspiciousMetadata {
		sum += 0.3
		weight += 0.3
	} else {
		sum *= 0.8
	}

	for _, m := range matches {
		if m.MatchConfidence > 0.7 {
			sum += 0.4
			weight += 0.4
		}
	}

	score := sum / math.Max(weight, 1)
	score = math.Min(1, math.Max(0, score))
	return math.Round(score*1000) / 1000
}

// assessmentConfidence starts at the extraction confidence, grows with each
// confident issue and is discounted when the extraction itself was weak.
func assessmentConfidence(extractionConfidence float64, issues []domain.FraudIssue) float64 {
	confident := 0
	for _, issue := range issues {
		if issue.Confidence > 0.7 {
			confident++
		}
	}
	c := extractionConfidence + 0.1*float64(confident)
	c = math.Min(1, math.Max(0, c))
	if extractionConfidence < lowConfidenceThreshold {
		c *= 0.7
	}
	return c
}

func hasCritical(issues []domain.FraudIssue) bool {
	for _, issue := range issues {
		if issue.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}
