package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailShrinksLargeImage(t *testing.T) {
	r := New()
	out, err := r.Thumbnail(pngBytes(t, 1280, 640), "image/png")
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output must be a valid jpeg, got %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 160 {
		t.Fatalf("expected 320x160 preserving aspect, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailPassesThroughSmallImage(t *testing.T) {
	r := New()
	out, err := r.Thumbnail(pngBytes(t, 100, 50), "image/png")
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output must be a valid jpeg, got %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("small images must keep their size, got %v", img.Bounds())
	}
}

func TestThumbnailRejectsUnsupportedMime(t *testing.T) {
	r := New()
	if _, err := r.Thumbnail([]byte("%PDF-1.4"), "application/pdf"); err == nil {
		t.Fatalf("expected error for unsupported mime type")
	}
}

func TestThumbnailRejectsCorruptData(t *testing.T) {
	r := New()
	if _, err := r.Thumbnail([]byte("not a png"), "image/png"); err == nil {
		t.Fatalf("expected decode error")
	}
}
