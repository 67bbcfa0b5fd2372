package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func noiseImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func TestPrepareProducesGrayscaleJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 40))
	for x := 0; x < 120; x++ {
		for y := 0; y < 40; y++ {
			src.Set(x, y, color.RGBA{200, 180, 20, 255})
		}
	}
	p := New(DefaultOptions(), nil)

	out := p.Prepare(context.Background(), domain.Image{Data: encodePNG(t, src), MimeType: "image/png"})
	if out.MimeType != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", out.MimeType)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 120 {
		t.Fatalf("small images must keep their size, got width %d", decoded.Bounds().Dx())
	}
	r, g, b, _ := decoded.At(60, 20).RGBA()
	if diff(r, g) > 0x0400 || diff(g, b) > 0x0400 {
		t.Fatalf("expected grayscale pixel, got %d/%d/%d", r, g, b)
	}
}

func TestPrepareDownsizesOversizedImage(t *testing.T) {
	raw := encodePNG(t, noiseImage(400, 200))
	p := New(Options{MaxBytes: 16 * 1024, MaxWidth: 100}, nil)

	out := p.Prepare(context.Background(), domain.Image{Data: raw, MimeType: "image/png"})
	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 50 {
		t.Fatalf("expected proportional 100x50, got %v", decoded.Bounds())
	}
}

func TestPrepareAcceptsFloorQualityWhenStillTooLarge(t *testing.T) {
	raw := encodePNG(t, noiseImage(64, 64))
	p := New(Options{MaxBytes: 1, MaxWidth: 1920}, nil)

	out := p.Prepare(context.Background(), domain.Image{Data: raw, MimeType: "image/png"})
	if len(out.Data) == 0 || out.MimeType != "image/jpeg" {
		t.Fatalf("expected best-effort jpeg output, got %d bytes (%s)", len(out.Data), out.MimeType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
}

func TestPrepareReturnsUndecodableInputUnchanged(t *testing.T) {
	in := domain.Image{Data: []byte("definitely not an image"), MimeType: "image/heic"}
	out := New(DefaultOptions(), nil).Prepare(context.Background(), in)
	if !bytes.Equal(out.Data, in.Data) || out.MimeType != in.MimeType {
		t.Fatalf("expected input to be returned unchanged")
	}
}

func diff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
