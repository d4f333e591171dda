// Package raster defines the owned RGBA8 pixel buffer shared by every
// processing stage, plus the error taxonomy those stages report.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// MaxPixels bounds the number of pixels a single buffer may hold.
// Requests above it fail with ErrAllocation instead of exhausting memory.
var MaxPixels = 1 << 28

// Image is a non-premultiplied RGBA8 buffer with a stride of Width*4.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a transparent image of the given dimensions.
func New(width, height int) (*Image, error) {
	if err := CheckDimensions(width, height); err != nil {
		return nil, &ProcessingError{Op: "allocate", Kind: ErrAllocation, Err: err}
	}
	return &Image{Width: width, Height: height, Pix: make([]byte, width*height*4)}, nil
}

// CheckDimensions reports whether a width x height buffer is allowed.
func CheckDimensions(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if width > MaxPixels/height {
		return fmt.Errorf("dimensions %dx%d exceed %d pixels", width, height, MaxPixels)
	}
	return nil
}

// FromImage copies any image.Image into a new raster. The source is never aliased.
func FromImage(img image.Image) (*Image, error) {
	if img == nil {
		return nil, &ProcessingError{Op: "convert", Kind: ErrDecodeFailure, Err: fmt.Errorf("nil image")}
	}
	b := img.Bounds()
	if err := CheckDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, &ProcessingError{Op: "convert", Kind: ErrAllocation, Err: err}
	}
	// imaging.Clone always returns a fresh NRGBA with a tight stride.
	return FromNRGBA(imaging.Clone(img)), nil
}

// FromNRGBA wraps the pixels of a tightly packed NRGBA image without copying.
// Ownership of the pixel slice moves to the returned raster.
func FromNRGBA(src *image.NRGBA) *Image {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if src.Stride == w*4 && src.Rect.Min == (image.Point{}) {
		return &Image{Width: w, Height: h, Pix: src.Pix[:w*h*4]}
	}
	out := &Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		i := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(out.Pix[y*w*4:(y+1)*w*4], src.Pix[i:i+w*4])
	}
	return out
}

// NRGBA exposes the raster as an *image.NRGBA sharing the same pixels.
func (m *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: m.Pix, Stride: m.Width * 4, Rect: image.Rect(0, 0, m.Width, m.Height)}
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]byte, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Pix: pix}
}

// Validate checks the buffer length invariant.
func (m *Image) Validate() error {
	if m == nil {
		return fmt.Errorf("nil raster")
	}
	if m.Width < 1 || m.Height < 1 {
		return fmt.Errorf("invalid dimensions %dx%d", m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height*4 {
		return fmt.Errorf("pixel buffer length %d does not match %dx%d", len(m.Pix), m.Width, m.Height)
	}
	return nil
}

// At returns the pixel at (x, y).
func (m *Image) At(x, y int) color.NRGBA {
	i := (y*m.Width + x) * 4
	return color.NRGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: m.Pix[i+3]}
}

// Set writes the pixel at (x, y).
func (m *Image) Set(x, y int, c color.NRGBA) {
	i := (y*m.Width + x) * 4
	m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = c.R, c.G, c.B, c.A
}
