package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentCategory string

const (
	CategoryAuthenticity DocumentCategory = "certificate_of_authenticity"
	CategoryNFT          DocumentCategory = "nft_certificate"
	CategoryInsurance    DocumentCategory = "insurance"
	CategoryAppraisal    DocumentCategory = "appraisal"
	CategoryPhoto        DocumentCategory = "photo"
	CategoryVideo        DocumentCategory = "video"
	CategoryOther        DocumentCategory = "other"
)

// Priority levels for queue ordering. Higher is more urgent.
const (
	PriorityNormal = 0
	PriorityHigh   = 5
	PriorityUrgent = 10
)

func ValidCategory(c DocumentCategory) bool {
	switch c {
	case CategoryAuthenticity, CategoryNFT, CategoryInsurance,
		CategoryAppraisal, CategoryPhoto, CategoryVideo, CategoryOther:
		return true
	}
	return false
}

// Document is one uploaded file tied to a loan submission. The pipeline
// mutates its status as analysis proceeds; it never deletes documents.
type Document struct {
	ID            string            `json:"id"`
	SubmissionID  string            `json:"submission_id"`
	UploaderID    string            `json:"uploader_id"`
	Category      DocumentCategory  `json:"category"`
	Filename      string            `json:"filename"`
	MimeType      string            `json:"mime_type"`
	StoragePath   string            `json:"storage_path"`
	ThumbnailPath string            `json:"thumbnail_path,omitempty"`
	SizeBytes     int64             `json:"size_bytes"`
	Checksum      string            `json:"checksum"`
	Status        DocumentStatus    `json:"status"`
	Priority      int               `json:"priority"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// EstimatedProcessingTime is a UI/SLA hint derived from priority; it plays
// no role in scheduling.
func EstimatedProcessingTime(priority int) time.Duration {
	switch {
	case priority >= PriorityUrgent:
		return 30 * time.Second
	case priority >= PriorityHigh:
		return 60 * time.Second
	default:
		return 120 * time.Second
	}
}
