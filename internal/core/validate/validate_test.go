package validate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pawnlend/docverify/internal/core/domain"
)

func TestDetectType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7 rest"), "application/pdf"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01}, "image/png"},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBPVP8 ")...)...), "image/webp"},
		{"plain text", []byte("hello world"), ""},
		{"truncated riff", []byte("RIFF1234"), ""},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectType(tc.data); got != tc.want {
				t.Fatalf("DetectType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCheckFileAccepted(t *testing.T) {
	data := []byte("%PDF-1.4 content")
	info, err := CheckFile("certificate.pdf", data)
	if err != nil {
		t.Fatalf("CheckFile() error = %v", err)
	}
	if info.DetectedType != "application/pdf" {
		t.Fatalf("detected type = %q", info.DetectedType)
	}
	if info.Size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", info.Size, len(data))
	}
	if info.Checksum != Checksum(data) || len(info.Checksum) != 64 {
		t.Fatalf("unexpected checksum %q", info.Checksum)
	}
}

func TestCheckFileCollectsAllReasons(t *testing.T) {
	oversized := bytes.Repeat([]byte{'a'}, MaxFileSize+1)

	_, err := CheckFile("huge.txt", oversized)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *domain.ValidationError, got %T", err)
	}
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if len(vErr.Reasons) != 2 {
		t.Fatalf("expected size and format reasons, got %v", vErr.Reasons)
	}
}

func TestCheckFileEmpty(t *testing.T) {
	_, err := CheckFile("empty.pdf", nil)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if len(vErr.Reasons) != 1 || !strings.Contains(vErr.Reasons[0], "empty") {
		t.Fatalf("unexpected reasons: %v", vErr.Reasons)
	}
}

func TestChecksumIsStable(t *testing.T) {
	if Checksum([]byte("abc")) != Checksum([]byte("abc")) {
		t.Fatalf("checksum must be deterministic")
	}
	if Checksum([]byte("abc")) == Checksum([]byte("abd")) {
		t.Fatalf("different content must produce different checksums")
	}
}
