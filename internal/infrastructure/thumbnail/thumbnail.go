package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Renderer produces small JPEG previews for the raster formats the pipeline
// accepts. PDFs have no preview; the ingest side skips them.
type Renderer struct {
	maxEdge int
	quality int
}

func New() *Renderer {
	return &Renderer{maxEdge: 320, quality: 85}
}

func (r *Renderer) Thumbnail(data []byte, mimeType string) ([]byte, error) {
	src, err := decode(data, mimeType)
	if err != nil {
		return nil, err
	}

	dst := scaleToFit(src, r.maxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, mimeType string) (image.Image, error) {
	reader := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		img, err := jpeg.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("decode jpeg: %w", err)
		}
		return img, nil
	case "image/png":
		img, err := png.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("decode png: %w", err)
		}
		return img, nil
	case "image/webp":
		img, err := webp.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("no thumbnail support for %q", mimeType)
	}
}

// scaleToFit shrinks the image so the longer edge is at most maxEdge,
// preserving aspect ratio. Images already small enough pass through.
func scaleToFit(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	var dw, dh int
	if w >= h {
		dw = maxEdge
		dh = h * maxEdge / w
	} else {
		dh = maxEdge
		dw = w * maxEdge / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
