package domain

import "time"

// StatusView is the caller-facing state of a document's analysis.
type StatusView struct {
	DocumentID  string         `json:"document_id"`
	Status      DocumentStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"last_error,omitempty"`
	NextRetryAt *time.Time     `json:"next_retry_at,omitempty"`
}

// AnalysisResults pairs the latest extraction with its assessment.
type AnalysisResults struct {
	Extraction *ExtractionResult `json:"extraction"`
	Assessment *FraudAssessment  `json:"assessment"`
}

type BatchFailure struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// BatchResult reports every batch member individually; one member's failure
// never aborts its siblings.
type BatchResult struct {
	Processed []string       `json:"processed"`
	Failed    []BatchFailure `json:"failed"`
}
