package validate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// MaxFileSize caps uploads at 50 MB.
const MaxFileSize = 50 << 20

// FileInfo describes a validated upload. DetectedType comes from byte
// sniffing; the declared MIME type is never trusted.
type FileInfo struct {
	Size         int64
	DetectedType string
	Checksum     string
}

var magicTable = []struct {
	mime  string
	check func([]byte) bool
}{
	{"application/pdf", func(b []byte) bool { return bytes.HasPrefix(b, []byte("%PDF-")) }},
	{"image/jpeg", func(b []byte) bool { return bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}) }},
	{"image/png", func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}) }},
	{"image/webp", func(b []byte) bool {
		return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP"))
	}},
}

// DetectType sniffs the actual content type from file bytes. Empty string
// means the format is not in the supported set.
func DetectType(data []byte) string {
	for _, m := range magicTable {
		if m.check(data) {
			return m.mime
		}
	}
	return ""
}

// Supported reports whether a sniffed MIME type is accepted by the pipeline.
func Supported(mime string) bool {
	switch mime {
	case "application/pdf", "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// Checksum returns the hex-encoded SHA-256 of the content, used for
// deduplication and audit.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckFile validates an upload and returns its sniffed metadata. All
// rejection reasons are collected into a single *domain.ValidationError.
func CheckFile(filename string, data []byte) (*FileInfo, error) {
	var reasons []string

	if len(data) == 0 {
		reasons = append(reasons, "file is empty")
	}
	if len(data) > MaxFileSize {
		reasons = append(reasons, fmt.Sprintf("file size %d exceeds maximum of %d bytes", len(data), MaxFileSize))
	}
	detected := DetectType(data)
	if len(data) > 0 && detected == "" {
		reasons = append(reasons, fmt.Sprintf("unsupported file format for %q: expected JPEG, PNG, WEBP or PDF", filename))
	}

	if len(reasons) > 0 {
		return nil, &domain.ValidationError{Reasons: reasons}
	}

	return &FileInfo{
		Size:         int64(len(data)),
		DetectedType: detected,
		Checksum:     Checksum(data),
	}, nil
}
