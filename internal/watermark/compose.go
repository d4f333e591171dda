package watermark

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Apply composites the watermark described by cfg and returns a new raster.
// A nil provider selects DefaultFontProvider. The input is not modified.
func Apply(img *raster.Image, cfg *Config, fp FontProvider) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, &raster.ProcessingError{Op: "watermark", Kind: raster.ErrFilterApplication, Err: err}
	}
	if cfg == nil || !cfg.Enabled || cfg.Text == "" || cfg.Opacity <= 0 {
		return img.Clone(), nil
	}
	if fp == nil {
		fp = DefaultFontProvider()
	}

	size := min(max(cfg.FontSizePx, 12), 200)
	face, err := fp.Face(cfg.FontFamily, size)
	if err != nil {
		return nil, &raster.ProcessingError{Op: "watermark", Kind: raster.ErrFilterApplication, Err: err}
	}
	defer func() { _ = face.Close() }()

	fs := float64(size)
	tw := float64(MeasureText(face, cfg.Text))
	pos := cfg.Position
	if p, err := ParsePosition(string(pos)); err == nil {
		pos = p
	} else {
		pos = BottomRight
	}
	x, y := Anchor(pos, img.Width, img.Height, tw, fs)

	layer := renderLayer(face, cfg.Text, ParseColor(cfg.Color), tw, fs, float64(min(max(cfg.AngleDeg, -45), 45)))

	// The layer is centred on the pivot (x+tw/2, y-fs/2).
	cx, cy := x+tw/2, y-fs/2
	at := image.Pt(
		int(math.Round(cx-float64(layer.Bounds().Dx())/2)),
		int(math.Round(cy-float64(layer.Bounds().Dy())/2)),
	)
	opacity := float64(min(cfg.Opacity, 100)) / 100
	out := imaging.Overlay(img.NRGBA(), layer, at, opacity)

	slog.Debug("watermark applied",
		"position", string(pos), "x", x, "y", y, "text_width", tw,
		"font_size", size, "angle", cfg.AngleDeg, "opacity", cfg.Opacity)
	return raster.FromNRGBA(out), nil
}

// renderLayer draws text on a transparent square whose centre is the text's
// centre, then rotates it clockwise by angle degrees around that centre.
func renderLayer(face font.Face, text string, c color.NRGBA, tw, fs, angle float64) *image.NRGBA {
	side := int(math.Ceil(math.Hypot(tw, fs*1.5))) + 2
	side += side % 2
	layer := image.NewNRGBA(image.Rect(0, 0, side, side))

	half := float64(side) / 2
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(half - tw/2), Y: toFixed(half + fs/2)},
	}
	d.DrawString(text)

	if angle == 0 {
		return layer
	}
	// imaging rotates counter-clockwise.
	return imaging.Rotate(layer, -angle, color.Transparent)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
