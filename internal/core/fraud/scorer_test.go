package fraud

import (
	"context"
	"strings"
	"testing"

	"github.com/pawnlend/docverify/internal/core/domain"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	tables := DefaultTables()
	tables.BlacklistedSerials = []string{"SN-0001"}
	ref, err := NewReference(tables)
	if err != nil {
		t.Fatalf("NewReference() error = %v", err)
	}
	return NewScorer(ref, DefaultReviewThreshold)
}

func cleanAppraisalResult() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		ID:         "ext-1",
		DocumentID: "doc-1",
		Text: "Appraisal Report. Appraiser: John Smith, American Society of Appraisers. " +
			"Market Value: $5,000. Replacement Value: $6,500. Date: 2026-01-15. " +
			"Item Description: 18k gold ring with diamond.",
		Fields: domain.StructuredFields{
			AppraiserName: "John Smith",
			MarketValue:   "$5,000",
		},
		Confidence: 0.93,
	}
}

func TestAssessCleanAppraisalScoresLow(t *testing.T) {
	scorer := newTestScorer(t)
	data := []byte("%PDF-1.4 plain appraisal content")

	a, err := scorer.Assess(context.Background(), cleanAppraisalResult(), data, "application/pdf", domain.CategoryAppraisal)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if a.FraudScore != 0 {
		t.Fatalf("expected fraud score 0, got %v", a.FraudScore)
	}
	if a.RiskTier != domain.RiskLow {
		t.Fatalf("expected low risk tier, got %s", a.RiskTier)
	}
	if a.ManualReviewRequired {
		t.Fatalf("clean document must not require manual review")
	}
	if a.TamperingDetected {
		t.Fatalf("clean bytes must not flag tampering")
	}
	if a.AuthenticityScore != 1 {
		t.Fatalf("expected authenticity 1, got %v", a.AuthenticityScore)
	}
}

func TestAssessCounterfeitCertificateScoresCritical(t *testing.T) {
	scorer := newTestScorer(t)
	res := &domain.ExtractionResult{
		ID:         "ext-2",
		DocumentID: "doc-2",
		Text:       "This is a COUNTERFEIT certificate. Not AUTHENTIC.",
		Confidence: 0.9,
	}
	data := []byte("%PDF-1.4 counterfeit content")

	a, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if a.RiskTier != domain.RiskCritical {
		t.Fatalf("expected critical tier, got %s (score %v)", a.RiskTier, a.FraudScore)
	}
	if !a.ManualReviewRequired {
		t.Fatalf("critical document must require manual review")
	}
	if len(a.PatternMatches) == 0 {
		t.Fatalf("expected known fraud pattern matches")
	}
	if !hasIssue(a.Issues, domain.IssueKnownFraudPattern) {
		t.Fatalf("expected known fraud pattern issue, got %+v", a.Issues)
	}
	if !hasIssue(a.Issues, domain.IssueSuspiciousKeyword) {
		t.Fatalf("expected suspicious keyword issue, got %+v", a.Issues)
	}
}

func TestAssessBlacklistedSerialFailsCrossReference(t *testing.T) {
	scorer := newTestScorer(t)
	res := &domain.ExtractionResult{
		ID:         "ext-3",
		DocumentID: "doc-3",
		Text: "Certificate of Authenticity. This item is authentic. Issued by GIA. Date: 2026-02-02. " +
			"Certificate Number: C-9. Serial Number: SN-0001. Item Description: sapphire pendant.",
		Fields: domain.StructuredFields{
			SerialNumber: "SN-0001",
			Issuer:       "GIA",
		},
		Confidence: 0.95,
	}
	data := []byte("%PDF-1.4 certificate content")

	a, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if !hasIssue(a.Issues, domain.IssueBlacklistedSerial) {
		t.Fatalf("expected blacklisted serial issue, got %+v", a.Issues)
	}
	if !a.ManualReviewRequired {
		t.Fatalf("blacklisted serial must require manual review")
	}
	if a.RiskTier != domain.RiskHigh && a.RiskTier != domain.RiskCritical {
		t.Fatalf("expected elevated tier, got %s (score %v)", a.RiskTier, a.FraudScore)
	}

	var serialCheck *domain.CrossReferenceCheck
	for i := range a.CrossReferenceChecks {
		if a.CrossReferenceChecks[i].Name == "serial_blacklist" {
			serialCheck = &a.CrossReferenceChecks[i]
		}
	}
	if serialCheck == nil || serialCheck.Result != domain.CheckFail {
		t.Fatalf("expected failing serial blacklist check, got %+v", a.CrossReferenceChecks)
	}
}

func TestAssessSuspiciousMetadataFlagsTampering(t *testing.T) {
	scorer := newTestScorer(t)
	res := cleanAppraisalResult()
	data := []byte("%PDF-1.4 produced with Adobe Photoshop CS6")

	a, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAppraisal)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if !a.TamperingDetected {
		t.Fatalf("expected tampering detected for high-risk editor signature")
	}
	if !hasIssue(a.Issues, domain.IssueMetadataTampering) {
		t.Fatalf("expected metadata tampering issue, got %+v", a.Issues)
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	scorer := newTestScorer(t)
	res := &domain.ExtractionResult{
		ID:         "ext-4",
		DocumentID: "doc-4",
		Text:       "Draft certificate, sample only.",
		Confidence: 0.4,
	}
	data := []byte("%PDF-1.4 draft")

	first, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	second, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if first.FraudScore != second.FraudScore {
		t.Fatalf("score not deterministic: %v vs %v", first.FraudScore, second.FraudScore)
	}
	if first.RiskTier != second.RiskTier {
		t.Fatalf("tier not deterministic: %s vs %s", first.RiskTier, second.RiskTier)
	}
	if first.ReviewNotes != second.ReviewNotes {
		t.Fatalf("notes not deterministic")
	}
}

func TestAssessScoreStaysInBounds(t *testing.T) {
	scorer := newTestScorer(t)
	res := &domain.ExtractionResult{
		ID:         "ext-5",
		DocumentID: "doc-5",
		Text: "fake fraud counterfeit replica copy duplicate sample temporary draft not valid " +
			"fake certificate counterfeit claims authentic specimen void if copied",
		Fields:     domain.StructuredFields{SerialNumber: "SN-0001"},
		Confidence: 0.2,
	}
	data := []byte("Photoshop GIMP Paint iText Sejda pdftk")

	a, err := scorer.Assess(context.Background(), res, data, "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if a.FraudScore < 0 || a.FraudScore > 1 {
		t.Fatalf("fraud score out of bounds: %v", a.FraudScore)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		t.Fatalf("assessment confidence out of bounds: %v", a.Confidence)
	}
	if a.AuthenticityScore < 0 || a.AuthenticityScore > 1 {
		t.Fatalf("authenticity score out of bounds: %v", a.AuthenticityScore)
	}
}

func TestAssessRejectsUnusableExtraction(t *testing.T) {
	scorer := newTestScorer(t)
	res := &domain.ExtractionResult{
		ID:           "ext-6",
		DocumentID:   "doc-6",
		ErrorMessage: "extract blocks: vendor down",
	}

	_, err := scorer.Assess(context.Background(), res, []byte("%PDF-1.4"), "application/pdf", domain.CategoryAuthenticity)
	if !domain.IsKind(err, domain.ErrAssessment) {
		t.Fatalf("expected assessment error, got %v", err)
	}

	_, err = scorer.Assess(context.Background(), nil, []byte("%PDF-1.4"), "application/pdf", domain.CategoryAuthenticity)
	if !domain.IsKind(err, domain.ErrAssessment) {
		t.Fatalf("expected assessment error for nil result, got %v", err)
	}
}

func TestAssessRejectsMissingBytes(t *testing.T) {
	scorer := newTestScorer(t)

	_, err := scorer.Assess(context.Background(), cleanAppraisalResult(), nil, "application/pdf", domain.CategoryAppraisal)
	if !domain.IsKind(err, domain.ErrAssessment) {
		t.Fatalf("expected assessment error, got %v", err)
	}
}

func TestAggregateScoreTierBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		tier  domain.RiskTier
	}{
		{0.0, domain.RiskLow},
		{0.299, domain.RiskLow},
		{0.3, domain.RiskMedium},
		{0.599, domain.RiskMedium},
		{0.6, domain.RiskHigh},
		{0.799, domain.RiskHigh},
		{0.8, domain.RiskCritical},
		{1.0, domain.RiskCritical},
	}
	for _, tc := range cases {
		if got := domain.RiskTierFor(tc.score); got != tc.tier {
			t.Fatalf("RiskTierFor(%v) = %s, want %s", tc.score, got, tc.tier)
		}
	}
}

func TestAggregateScoreMoreIssuesNeverLowersScore(t *testing.T) {
	meta := domain.MetadataAnalysis{ConsistencyScore: 1}
	base := []domain.FraudIssue{
		{Severity: domain.SeverityHigh, Confidence: 0.8},
	}
	more := append(append([]domain.FraudIssue(nil), base...), domain.FraudIssue{
		Severity: domain.SeverityCritical, Confidence: 0.9,
	})

	baseScore := aggregateScore(base, meta, nil)
	moreScore := aggregateScore(more, meta, nil)
	if moreScore < baseScore {
		t.Fatalf("adding a critical issue lowered the score: %v -> %v", baseScore, moreScore)
	}
}

func TestReviewNotesListsCriticalIssues(t *testing.T) {
	issues := []domain.FraudIssue{
		{Severity: domain.SeverityCritical, Description: "text matches known fraud pattern"},
		{Severity: domain.SeverityMedium, Description: "layout anomaly"},
	}
	notes := reviewNotes(0.84, domain.RiskCritical, issues)

	if !strings.Contains(notes, "Fraud score: 0.840 (risk tier: critical).") {
		t.Fatalf("unexpected notes header: %q", notes)
	}
	if !strings.Contains(notes, "Critical issues:") {
		t.Fatalf("expected critical issue section: %q", notes)
	}
	if !strings.Contains(notes, "manual review required") {
		t.Fatalf("expected manual review recommendation: %q", notes)
	}

	clean := reviewNotes(0.1, domain.RiskLow, nil)
	if !strings.Contains(clean, "No issues detected.") || !strings.Contains(clean, "appears legitimate") {
		t.Fatalf("unexpected clean notes: %q", clean)
	}
}

func TestAddFraudPatternTakesEffect(t *testing.T) {
	scorer := newTestScorer(t)
	if err := scorer.ref.AddFraudPattern(`limited\s+edition\s+scam`, 0.9); err != nil {
		t.Fatalf("AddFraudPattern() error = %v", err)
	}

	res := &domain.ExtractionResult{
		ID:         "ext-7",
		DocumentID: "doc-7",
		Text:       "Certificate. authentic, issued, date. Limited Edition Scam",
		Confidence: 0.9,
	}
	a, err := scorer.Assess(context.Background(), res, []byte("%PDF-1.4"), "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if !hasIssue(a.Issues, domain.IssueKnownFraudPattern) {
		t.Fatalf("expected added pattern to match, issues: %+v", a.Issues)
	}
}

func TestBlacklistAddRemove(t *testing.T) {
	scorer := newTestScorer(t)
	if !scorer.ref.isBlacklisted("sn-0001") {
		t.Fatalf("blacklist lookup must be case-insensitive")
	}
	scorer.ref.RemoveBlacklistedSerial("SN-0001")
	if scorer.ref.isBlacklisted("SN-0001") {
		t.Fatalf("expected serial removed from blacklist")
	}
	scorer.ref.AddBlacklistedSerial(" sn-0002 ")
	if !scorer.ref.isBlacklisted("SN-0002") {
		t.Fatalf("expected trimmed, normalized serial to be blacklisted")
	}
}

func hasIssue(issues []domain.FraudIssue, category domain.IssueCategory) bool {
	for _, issue := range issues {
		if issue.Category == category {
			return true
		}
	}
	return false
}
