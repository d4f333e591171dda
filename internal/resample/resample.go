// Package resample scales rasters with a Lanczos kernel.
package resample

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/disintegration/imaging"
)

// Resize returns a new raster of exactly width x height.
// A same-size request returns a clone.
func Resize(img *raster.Image, width, height int) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, raster.Wrap("resize", raster.ErrFilterApplication, err)
	}
	if width < 1 || height < 1 {
		return nil, &raster.ProcessingError{
			Op:   "resize",
			Kind: raster.ErrAllocation,
			Err:  fmt.Errorf("invalid target %dx%d", width, height),
		}
	}
	if width == img.Width && height == img.Height {
		return img.Clone(), nil
	}
	if width > raster.MaxPixels/height {
		return nil, &raster.ProcessingError{
			Op:   "resize",
			Kind: raster.ErrAllocation,
			Err:  fmt.Errorf("target %dx%d exceeds %d pixels", width, height, raster.MaxPixels),
		}
	}

	return raster.FromNRGBA(imaging.Resize(img.NRGBA(), width, height, imaging.Lanczos)), nil
}

// Scale resizes by factor, flooring each side and keeping it at least 1.
func Scale(img *raster.Image, factor float64) (*raster.Image, error) {
	w := max(1, int(math.Floor(float64(img.Width)*factor)))
	h := max(1, int(math.Floor(float64(img.Height)*factor)))
	return Resize(img, w, h)
}
