// Package filter applies the colour and spatial adjustments of a Set to a raster.
//
// The per-pixel stages run in a fixed order (brightness, contrast, saturation,
// sepia, grayscale, vintage) in a single pass. Each stage quantizes to a byte
// before the next reads it, so the pass equals applying the stages one after
// another. Blur and sharpen follow as whole-image passes. Alpha is never changed.
package filter

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/imgforge/internal/raster"
)

// Set holds every adjustment. The zero value is the identity.
type Set struct {
	Brightness int     `json:"brightness" yaml:"brightness" mapstructure:"brightness"` // -100..100
	Contrast   int     `json:"contrast" yaml:"contrast" mapstructure:"contrast"`       // -100..100
	Saturation int     `json:"saturation" yaml:"saturation" mapstructure:"saturation"` // -100..100
	BlurRadius float64 `json:"blur" yaml:"blur" mapstructure:"blur"`                   // 0..10 px
	Sharpen    int     `json:"sharpen" yaml:"sharpen" mapstructure:"sharpen"`          // 0..100
	Sepia      int     `json:"sepia" yaml:"sepia" mapstructure:"sepia"`                // 0..100
	Grayscale  int     `json:"grayscale" yaml:"grayscale" mapstructure:"grayscale"`    // 0..100
	Vintage    bool    `json:"vintage" yaml:"vintage" mapstructure:"vintage"`
}

// IsIdentity reports whether applying s leaves every pixel unchanged.
func (s Set) IsIdentity() bool {
	return !s.hasPixelStage() && s.BlurRadius == 0 && s.Sharpen == 0
}

func (s Set) hasPixelStage() bool {
	return s.Brightness != 0 || s.Contrast != 0 || s.Saturation != 0 ||
		s.Sepia != 0 || s.Grayscale != 0 || s.Vintage
}

// Validate reports the first field outside its range.
func (s Set) Validate() error {
	checks := []struct {
		name     string
		v, lo, hi int
	}{
		{"brightness", s.Brightness, -100, 100},
		{"contrast", s.Contrast, -100, 100},
		{"saturation", s.Saturation, -100, 100},
		{"sharpen", s.Sharpen, 0, 100},
		{"sepia", s.Sepia, 0, 100},
		{"grayscale", s.Grayscale, 0, 100},
	}
	for _, c := range checks {
		if c.v < c.lo || c.v > c.hi {
			return fmt.Errorf("%s must be between %d and %d, got %d", c.name, c.lo, c.hi, c.v)
		}
	}
	if s.BlurRadius < 0 || s.BlurRadius > 10 {
		return fmt.Errorf("blur must be between 0 and 10, got %g", s.BlurRadius)
	}
	return nil
}

// Clamp returns s with every field forced into its range.
func (s Set) Clamp() Set {
	s.Brightness = clampInt(s.Brightness, -100, 100)
	s.Contrast = clampInt(s.Contrast, -100, 100)
	s.Saturation = clampInt(s.Saturation, -100, 100)
	s.Sharpen = clampInt(s.Sharpen, 0, 100)
	s.Sepia = clampInt(s.Sepia, 0, 100)
	s.Grayscale = clampInt(s.Grayscale, 0, 100)
	s.BlurRadius = min(max(s.BlurRadius, 0), 10)
	return s
}

// Active lists the names of the non-identity adjustments, in application order.
func (s Set) Active() []string {
	var names []string
	add := func(on bool, name string) {
		if on {
			names = append(names, name)
		}
	}
	add(s.Brightness != 0, "brightness")
	add(s.Contrast != 0, "contrast")
	add(s.Saturation != 0, "saturation")
	add(s.Sepia != 0, "sepia")
	add(s.Grayscale != 0, "grayscale")
	add(s.Vintage, "vintage")
	add(s.BlurRadius > 0, "blur")
	add(s.Sharpen > 0, "sharpen")
	return names
}

// Apply runs the full filter chain and returns a new raster.
// The input is not modified.
func Apply(img *raster.Image, s Set) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, &raster.ProcessingError{Op: "filter", Kind: raster.ErrFilterApplication, Err: err}
	}
	s = s.Clamp()
	if s.IsIdentity() {
		return img.Clone(), nil
	}

	out := img
	if s.hasPixelStage() {
		out = ApplyPixel(out, s)
	}
	if s.BlurRadius > 0 {
		out = Blur(out, s.BlurRadius)
	}
	if s.Sharpen > 0 {
		out = Sharpen(out, s.Sharpen)
	}

	slog.Debug("filters applied", "filters", s.Active(), "width", out.Width, "height", out.Height)
	return out, nil
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
