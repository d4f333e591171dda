package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// MaxDimension bounds requested output width and height.
const MaxDimension = 16384

// Settings is an immutable snapshot of how to process an image.
// It is passed by value; a Watermark pointer is never mutated by processing.
type Settings struct {
	OutputFormat        encoder.Format    `json:"format" yaml:"format"`
	Quality             int               `json:"quality" yaml:"quality"`
	Width               int               `json:"width" yaml:"width"`   // 0 keeps the decoded width
	Height              int               `json:"height" yaml:"height"` // 0 keeps the decoded height
	MaintainAspectRatio bool              `json:"maintain_aspect_ratio" yaml:"maintain_aspect_ratio"`
	Filters             filter.Set        `json:"filters" yaml:"filters"`
	Watermark           *watermark.Config `json:"watermark,omitempty" yaml:"watermark,omitempty"`
	AllowLossyDownscale bool              `json:"allow_lossy_downscale" yaml:"allow_lossy_downscale"`
}

// DefaultSettings returns JPEG at quality 75 fitted into 1920x1080.
func DefaultSettings() Settings {
	return Settings{
		OutputFormat:        encoder.JPEG,
		Quality:             75,
		Width:               1920,
		Height:              1080,
		MaintainAspectRatio: true,
		AllowLossyDownscale: true,
	}
}

// Validate reports every out-of-range field.
func (s Settings) Validate() error {
	var errs []error
	if _, err := encoder.ParseFormat(string(s.OutputFormat)); err != nil {
		errs = append(errs, err)
	}
	if s.Quality < 0 || s.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be between 0 and 100, got %d", s.Quality))
	}
	if s.Width < 0 || s.Width > MaxDimension {
		errs = append(errs, fmt.Errorf("width must be between 0 and %d, got %d", MaxDimension, s.Width))
	}
	if s.Height < 0 || s.Height > MaxDimension {
		errs = append(errs, fmt.Errorf("height must be between 0 and %d, got %d", MaxDimension, s.Height))
	}
	if err := s.Filters.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filters: %w", err))
	}
	if s.Watermark != nil {
		if err := s.Watermark.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("watermark: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so the watermark config is not shared.
func (s Settings) Clone() Settings {
	if s.Watermark != nil {
		wm := *s.Watermark
		s.Watermark = &wm
	}
	return s
}
