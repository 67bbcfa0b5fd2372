package imaging

import (
	"bytes"
	"context"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

const (
	DefaultMaxBytes   = 800 * 1024
	DefaultMaxWidth   = 1920
	DefaultContrast   = 50
	DefaultBrightness = 20

	initialQuality = 80
	qualityStep    = 10
	qualityFloor   = 10
)

type Options struct {
	MaxBytes int
	MaxWidth int
	// Contrast and Brightness are percentage adjustments in -100..100.
	Contrast   float64
	Brightness float64
}

func DefaultOptions() Options {
	return Options{
		MaxBytes:   DefaultMaxBytes,
		MaxWidth:   DefaultMaxWidth,
		Contrast:   DefaultContrast,
		Brightness: DefaultBrightness,
	}
}

func (o Options) normalize() Options {
	out := o
	def := DefaultOptions()
	if out.MaxBytes <= 0 {
		out.MaxBytes = def.MaxBytes
	}
	if out.MaxWidth <= 0 {
		out.MaxWidth = def.MaxWidth
	}
	return out
}

// Preprocessor boosts plate legibility and keeps images under a transfer
// budget. The budget is best effort: the lowest quality is accepted even if
// the result is still too large.
type Preprocessor struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{opts: opts.normalize(), logger: logger}
}

func (p *Preprocessor) Prepare(_ context.Context, img domain.Image) domain.Image {
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		p.logger.Warn("image_decode_failed", "mime_type", img.MimeType, "bytes", len(img.Data), "error", err)
		return img
	}

	enhanced := p.enhance(src)
	resized := false
	if len(img.Data) > p.opts.MaxBytes && enhanced.Bounds().Dx() > p.opts.MaxWidth {
		enhanced = imaging.Resize(enhanced, p.opts.MaxWidth, 0, imaging.Lanczos)
		resized = true
	}

	var (
		encoded []byte
		quality int
	)
	for quality = initialQuality; quality >= qualityFloor; quality -= qualityStep {
		encoded, err = encodeJPEG(enhanced, quality)
		if err != nil {
			p.logger.Warn("image_encode_failed", "quality", quality, "error", err)
			return img
		}
		if len(encoded) < p.opts.MaxBytes {
			break
		}
	}
	if quality < qualityFloor {
		quality = qualityFloor
	}

	bounds := enhanced.Bounds()
	attrs := []any{
		"input_bytes", len(img.Data),
		"output_bytes", len(encoded),
		"quality", float64(quality) / 100,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"resized", resized,
	}
	if len(encoded) >= p.opts.MaxBytes {
		p.logger.Warn("image_over_budget", attrs...)
	} else {
		p.logger.Debug("image_preprocessed", attrs...)
	}

	return domain.Image{Data: encoded, MimeType: "image/jpeg"}
}

func (p *Preprocessor) enhance(src image.Image) image.Image {
	out := imaging.AdjustContrast(src, p.opts.Contrast)
	out = imaging.AdjustBrightness(out, p.opts.Brightness)
	return imaging.Grayscale(out)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
