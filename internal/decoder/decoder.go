// Package decoder turns raw file bytes into raster images after gating them
// on size and format.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/geometry"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes is the default upper bound on input size (50 MiB).
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// Format labels reported in Metadata.Format.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
	FormatWebP = "WebP"
	FormatGIF  = "GIF"
	FormatBMP  = "BMP"
	FormatTIFF = "TIFF"
	FormatRAW  = "RAW"
)

// extensionFormats maps lower-case extensions to format labels.
var extensionFormats = map[string]string{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".raw":  FormatRAW,
	".cr2":  FormatRAW,
	".nef":  FormatRAW,
	".arw":  FormatRAW,
	".dng":  FormatRAW,
}

// decoderFormats maps names registered with the image package to labels.
var decoderFormats = map[string]string{
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"webp": FormatWebP,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"tiff": FormatTIFF,
}

// SupportedExtensions lists every accepted input extension, sorted.
var SupportedExtensions = []string{
	".arw", ".bmp", ".cr2", ".dng", ".gif", ".jpeg", ".jpg", ".nef", ".png", ".raw", ".tif", ".tiff", ".webp",
}

// Metadata describes the decoded input.
type Metadata struct {
	Name        string  `json:"name"`
	Format      string  `json:"format"`
	SizeBytes   int64   `json:"size_bytes"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// Options tunes decoding.
type Options struct {
	MaxBytes int64 // 0 means DefaultMaxBytes
}

// IsSupported reports whether the name carries a supported image extension.
func IsSupported(name string) bool {
	_, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]
	return ok
}

// DetectFormat returns the format label for a file name, or "" when unknown.
func DetectFormat(name string) string {
	return extensionFormats[strings.ToLower(filepath.Ext(name))]
}

// sniffFormat inspects the header bytes through the registered decoders.
func sniffFormat(data []byte) string {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return decoderFormats[name]
}

// Decode validates and decodes data into an owned raster.
func Decode(data []byte, name string, opts Options) (*raster.Image, Metadata, error) {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	label, err := checkInput(data, name, maxBytes)
	if err != nil {
		return nil, Metadata{}, err
	}

	// Reject oversized canvases from the header alone, before the decoder
	// allocates pixel storage for them.
	if cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(data)); cfgErr == nil && cfg.Width > 0 && cfg.Height > 0 {
		if err := raster.CheckDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, Metadata{}, &raster.ProcessingError{
				Op:   "decode",
				Kind: raster.ErrAllocation,
				Err:  fmt.Errorf("%s: %w", displayName(name), err),
			}
		}
	}

	img, decodedAs, decErr := image.Decode(bytes.NewReader(data))
	if decErr != nil {
		return nil, Metadata{}, raster.Wrap("decode", raster.ErrDecodeFailure,
			fmt.Errorf("%s as %s: %w", displayName(name), label, decErr))
	}
	if label == FormatRAW {
		slog.Debug("raw input decoded through container format", "name", name, "container", decodedAs)
	}

	out, err := raster.FromImage(img)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{
		Name:        name,
		Format:      label,
		SizeBytes:   int64(len(data)),
		Width:       out.Width,
		Height:      out.Height,
		AspectRatio: geometry.Ratio(out.Width, out.Height),
	}
	return out, meta, nil
}

// checkInput applies the size gate then the format gate. It returns the format label.
func checkInput(data []byte, name string, maxBytes int64) (string, error) {
	if int64(len(data)) > maxBytes {
		return "", &raster.ProcessingError{
			Op:   "validate",
			Kind: raster.ErrFileTooLarge,
			Err:  fmt.Errorf("%s is %d bytes, limit is %d bytes", displayName(name), len(data), maxBytes),
		}
	}
	if len(data) == 0 {
		return "", &raster.ProcessingError{Op: "validate", Kind: raster.ErrDecodeFailure, Err: errors.New("empty input")}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		label, ok := extensionFormats[ext]
		if !ok {
			return "", &raster.ProcessingError{
				Op:   "validate",
				Kind: raster.ErrUnsupportedFormat,
				Err:  fmt.Errorf("extension %s is not one of %s", ext, strings.Join(SupportedExtensions, ", ")),
			}
		}
		return label, nil
	}

	if label := sniffFormat(data); label != "" {
		return label, nil
	}
	return "", &raster.ProcessingError{
		Op:   "validate",
		Kind: raster.ErrUnsupportedFormat,
		Err:  fmt.Errorf("could not determine format of %s", displayName(name)),
	}
}

func displayName(name string) string {
	if name == "" {
		return "input"
	}
	return name
}
