package domain

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityWeight is the contribution factor of an issue in score
// aggregation. Unknown severities weigh as low.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	default:
		return 0.2
	}
}

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// RiskTierFor maps a fraud score onto its tier. Boundaries are exact:
// 0.8 is critical, 0.6 high, 0.3 medium.
func RiskTierFor(score float64) RiskTier {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

type IssueCategory string

const (
	IssueSuspiciousKeyword  IssueCategory = "suspicious_keyword"
	IssueTextInconsistency  IssueCategory = "text_inconsistency"
	IssueMissingElements    IssueCategory = "missing_elements"
	IssueMetadataTampering  IssueCategory = "metadata_tampering"
	IssueKnownFraudPattern  IssueCategory = "known_fraud_pattern"
	IssueLayoutAnomaly      IssueCategory = "layout_anomaly"
	IssueBlacklistedSerial  IssueCategory = "blacklisted_serial"
	IssueUnrecognizedIssuer IssueCategory = "unrecognized_issuer"
	IssueTemplateMismatch   IssueCategory = "template_mismatch"
)

type EvidenceKind string

const (
	EvidencePattern  EvidenceKind = "pattern"
	EvidenceMetadata EvidenceKind = "metadata"
	EvidenceTemplate EvidenceKind = "template"
	EvidenceCrossRef EvidenceKind = "cross_reference"
	EvidenceText     EvidenceKind = "text"
)

// Evidence is the structured backing of an issue. Kind discriminates which
// fields are populated so audit consumers get a fixed shape per detector.
type Evidence struct {
	Kind          EvidenceKind `json:"kind"`
	Pattern       string       `json:"pattern,omitempty"`
	Matched       string       `json:"matched,omitempty"`
	Tool          string       `json:"tool,omitempty"`
	MissingFields []string     `json:"missing_fields,omitempty"`
	MatchRatio    float64      `json:"match_ratio,omitempty"`
	CheckName     string       `json:"check_name,omitempty"`
	Value         string       `json:"value,omitempty"`
}

type FraudIssue struct {
	Category    IssueCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Evidence    Evidence      `json:"evidence"`
	Confidence  float64       `json:"confidence"`
}

// MetadataAnalysis summarizes byte-level tamper heuristics.
type MetadataAnalysis struct {
	HasBeenEdited      bool     `json:"has_been_edited"`
	EditingTools       []string `json:"editing_tools,omitempty"`
	SuspiciousMetadata bool     `json:"suspicious_metadata"`
	ConsistencyScore   float64  `json:"consistency_score"`
}

type PatternMatch struct {
	Pattern         string  `json:"pattern"`
	Matched         string  `json:"matched"`
	MatchConfidence float64 `json:"match_confidence"`
}

type CheckResult string

const (
	CheckPass    CheckResult = "pass"
	CheckFail    CheckResult = "fail"
	CheckUnknown CheckResult = "unknown"
)

type CrossReferenceCheck struct {
	Name       string      `json:"name"`
	Result     CheckResult `json:"result"`
	Detail     string      `json:"detail,omitempty"`
	Confidence float64     `json:"confidence"`
}

// FraudAssessment is one fraud-scoring outcome, derived from exactly one
// extraction result plus the raw bytes. Never mutated after creation.
type FraudAssessment struct {
	ID                   string                `json:"id"`
	DocumentID           string                `json:"document_id"`
	ExtractionID         string                `json:"extraction_id"`
	FraudScore           float64               `json:"fraud_score"`
	RiskTier             RiskTier              `json:"risk_tier"`
	AuthenticityScore    float64               `json:"authenticity_score"`
	Issues               []FraudIssue          `json:"issues"`
	TamperingDetected    bool                  `json:"tampering_detected"`
	Metadata             MetadataAnalysis      `json:"metadata"`
	PatternMatches       []PatternMatch        `json:"pattern_matches"`
	CrossReferenceChecks []CrossReferenceCheck `json:"cross_reference_checks"`
	Confidence           float64               `json:"confidence"`
	ManualReviewRequired bool                  `json:"manual_review_required"`
	ReviewNotes          string                `json:"review_notes"`
	CreatedAt            time.Time             `json:"created_at"`
}
