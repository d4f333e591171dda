// Package encoder serialises rasters as JPEG, PNG or WebP.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/resample"
	"github.com/gen2brain/webp"
)

// LosslessQualityThreshold is the quality at or above which PNG output is never downscaled.
const LosslessQualityThreshold = 90

// Options tunes encoding.
type Options struct {
	// OriginalSize is the byte size of the source file. A downscaled PNG is only
	// chosen when it is smaller than this. Zero means unknown.
	OriginalSize int64
	// AllowLossyDownscale enables the PNG downscale trade-off for quality below 90.
	AllowLossyDownscale bool
}

// Result is an encoded image.
type Result struct {
	Bytes      []byte
	Format     Format
	Width      int
	Height     int
	Downscaled bool
}

// Encode serialises img in the given format.
func Encode(img *raster.Image, format Format, quality int, opts Options) (Result, error) {
	if err := img.Validate(); err != nil {
		return Result{}, raster.Wrap("encode", raster.ErrEncodeFailure, err)
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case JPEG:
		data, err = encodeJPEG(img, quality)
	case WebP:
		data, err = encodeWebP(img, quality)
	case PNG:
		return encodePNGWithPolicy(img, quality, opts)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return Result{}, raster.Wrap("encode", raster.ErrEncodeFailure, err)
	}
	return Result{Bytes: data, Format: format, Width: img.Width, Height: img.Height}, nil
}

// codecQuality maps 0..100 onto the codec scale, clamped to 10..100.
func codecQuality(quality int) int {
	q := math.Min(math.Max(float64(quality)/100, 0.1), 1)
	return int(math.Round(q * 100))
}

func encodeJPEG(img *raster.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img.NRGBA(), &jpeg.Options{Quality: codecQuality(quality)}); err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(img *raster.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img.NRGBA(), webp.Options{Quality: codecQuality(quality)}); err != nil {
		return nil, fmt.Errorf("webp: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePNGWithPolicy encodes at full resolution and, below the lossless
// threshold, also a copy scaled by max(0.5, q/100). The scaled copy wins only
// if it is smaller than both the full encode and the original file.
func encodePNGWithPolicy(img *raster.Image, quality int, opts Options) (Result, error) {
	full, err := encodePNG(img.NRGBA())
	if err != nil {
		return Result{}, raster.Wrap("encode", raster.ErrEncodeFailure, err)
	}
	result := Result{Bytes: full, Format: PNG, Width: img.Width, Height: img.Height}
	if !opts.AllowLossyDownscale || quality >= LosslessQualityThreshold {
		return result, nil
	}

	factor := math.Max(0.5, float64(quality)/100)
	scaled, err := resample.Scale(img, factor)
	if err != nil {
		return Result{}, raster.Wrap("encode", raster.ErrEncodeFailure, err)
	}
	small, err := encodePNG(scaled.NRGBA())
	if err != nil {
		return Result{}, raster.Wrap("encode", raster.ErrEncodeFailure, err)
	}

	fitsOriginal := opts.OriginalSize <= 0 || int64(len(small)) < opts.OriginalSize
	if len(small) < len(full) && fitsOriginal {
		slog.Debug("png downscale selected",
			"factor", factor, "full_bytes", len(full), "scaled_bytes", len(small),
			"width", scaled.Width, "height", scaled.Height)
		return Result{Bytes: small, Format: PNG, Width: scaled.Width, Height: scaled.Height, Downscaled: true}, nil
	}
	return result, nil
}
