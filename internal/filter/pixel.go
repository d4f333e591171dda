package filter

import (
	"image/color"
	"math"

	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/disintegration/imaging"
)

// ApplyPixel runs the six per-pixel stages of s over img and returns a new raster.
func ApplyPixel(img *raster.Image, s Set) *raster.Image {
	if !s.hasPixelStage() {
		return img.Clone()
	}
	return raster.FromNRGBA(imaging.AdjustFunc(img.NRGBA(), func(c color.NRGBA) color.NRGBA {
		return adjustPixel(c, s)
	}))
}

// adjustPixel applies the per-pixel stages to one colour.
func adjustPixel(c color.NRGBA, s Set) color.NRGBA {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	if s.Brightness != 0 {
		d := float64(s.Brightness) * 2.55
		r, g, b = quantize(r+d), quantize(g+d), quantize(b+d)
	}
	if s.Contrast != 0 {
		f := float64(s.Contrast+100) / 100
		r = quantize((r-128)*f + 128)
		g = quantize((g-128)*f + 128)
		b = quantize((b-128)*f + 128)
	}
	if s.Saturation != 0 {
		f := float64(s.Saturation+100) / 100
		l := luma(r, g, b)
		r = quantize(l + (r-l)*f)
		g = quantize(l + (g-l)*f)
		b = quantize(l + (b-l)*f)
	}
	if s.Sepia != 0 {
		f := float64(s.Sepia) / 100
		sr := 0.393*r + 0.769*g + 0.189*b
		sg := 0.349*r + 0.686*g + 0.168*b
		sb := 0.272*r + 0.534*g + 0.131*b
		r = quantize(r + (sr-r)*f)
		g = quantize(g + (sg-g)*f)
		b = quantize(b + (sb-b)*f)
	}
	if s.Grayscale != 0 {
		f := float64(s.Grayscale) / 100
		l := luma(r, g, b)
		r = quantize(r + (l-r)*f)
		g = quantize(g + (l-g)*f)
		b = quantize(b + (l-b)*f)
	}
	if s.Vintage {
		r = quantize(r*0.9 + 30)
		g = quantize(g*0.85 + 20)
		b = quantize(b*0.7 + 10)
	}

	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: c.A}
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// quantize clamps to [0,255] and rounds half to even, the way a clamped byte buffer stores it.
func quantize(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return math.RoundToEven(v)
}
