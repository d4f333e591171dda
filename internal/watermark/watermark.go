// Package watermark renders a text watermark onto a raster.
package watermark

import (
	"errors"
	"fmt"
	"strings"
)

// Position names the corner or centre a watermark is anchored to.
type Position string

// Supported positions.
const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
	Center      Position = "center"
)

// Margin is the distance in pixels between a corner anchor and the image edge.
const Margin = 20

// Positions lists every supported position.
var Positions = []Position{TopLeft, TopRight, BottomLeft, BottomRight, Center}

// ParsePosition accepts "bottom-right", "bottom_right", "BottomRight" and similar spellings.
func ParsePosition(s string) (Position, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for _, p := range Positions {
		if strings.ReplaceAll(string(p), "-", "") == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown watermark position %q", s)
}

// Config describes the watermark. A nil or disabled config renders nothing.
type Config struct {
	Enabled    bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Text       string   `json:"text" yaml:"text" mapstructure:"text"`
	Opacity    int      `json:"opacity" yaml:"opacity" mapstructure:"opacity"` // 0..100
	Position   Position `json:"position" yaml:"position" mapstructure:"position"`
	FontSizePx int      `json:"font_size" yaml:"font_size" mapstructure:"font_size"` // 12..200
	Color      string   `json:"color" yaml:"color" mapstructure:"color"`
	FontFamily string   `json:"font_family" yaml:"font_family" mapstructure:"font_family"`
	AngleDeg   int      `json:"angle" yaml:"angle" mapstructure:"angle"` // -45..45, clockwise
}

// DefaultConfig returns a disabled watermark with the default appearance.
func DefaultConfig() Config {
	return Config{
		Enabled:    false,
		Text:       "Watermark",
		Opacity:    50,
		Position:   BottomRight,
		FontSizePx: 24,
		Color:      "#ffffff",
		FontFamily: "Arial",
		AngleDeg:   0,
	}
}

// Validate checks ranges. Colors are not checked; invalid colors render white.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Opacity < 0 || c.Opacity > 100 {
		errs = append(errs, fmt.Errorf("opacity must be between 0 and 100, got %d", c.Opacity))
	}
	if c.FontSizePx < 12 || c.FontSizePx > 200 {
		errs = append(errs, fmt.Errorf("font size must be between 12 and 200, got %d", c.FontSizePx))
	}
	if c.AngleDeg < -45 || c.AngleDeg > 45 {
		errs = append(errs, fmt.Errorf("angle must be between -45 and 45, got %d", c.AngleDeg))
	}
	if _, err := ParsePosition(string(c.Position)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Anchor returns the baseline-left origin of text tw pixels wide at font size fs
// inside a w x h image.
func Anchor(pos Position, w, h int, tw, fs float64) (float64, float64) {
	W, H := float64(w), float64(h)
	switch pos {
	case TopLeft:
		return Margin, fs + Margin
	case TopRight:
		return W - tw - Margin, fs + Margin
	case BottomLeft:
		return Margin, H - Margin
	case Center:
		return (W - tw) / 2, (H + fs) / 2
	default:
		return W - tw - Margin, H - Margin
	}
}
