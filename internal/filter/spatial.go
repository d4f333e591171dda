package filter

import (
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/disintegration/imaging"
)

// Blur applies a Gaussian blur with standard deviation radius.
// Colour is blurred alpha-weighted; the alpha channel keeps its input values.
func Blur(img *raster.Image, radius float64) *raster.Image {
	if radius <= 0 {
		return img.Clone()
	}
	out := raster.FromNRGBA(imaging.Blur(img.NRGBA(), radius))
	copyAlpha(out, img)
	return out
}

// Sharpen convolves with [[0,-k,0],[-k,1+4k,-k],[0,-k,0]], k = amount/100.
// Only interior pixels change; the 1-pixel border is copied from the input.
func Sharpen(img *raster.Image, amount int) *raster.Image {
	if amount <= 0 || img.Width < 3 || img.Height < 3 {
		return img.Clone()
	}
	k := float64(amount) / 100
	kernel := [9]float64{
		0, -k, 0,
		-k, 1 + 4*k, -k,
		0, -k, 0,
	}
	out := raster.FromNRGBA(imaging.Convolve3x3(img.NRGBA(), kernel, nil))
	restoreBorder(out, img)
	copyAlpha(out, img)
	return out
}

func copyAlpha(dst, src *raster.Image) {
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = src.Pix[i]
	}
}

func restoreBorder(dst, src *raster.Image) {
	stride := src.Width * 4
	last := (src.Height - 1) * stride
	copy(dst.Pix[:stride], src.Pix[:stride])
	copy(dst.Pix[last:], src.Pix[last:])
	for y := 1; y < src.Height-1; y++ {
		row := y * stride
		copy(dst.Pix[row:row+4], src.Pix[row:row+4])
		copy(dst.Pix[row+stride-4:row+stride], src.Pix[row+stride-4:row+stride])
	}
}
