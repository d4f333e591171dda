// Package geometry resolves output dimensions under an aspect-ratio policy.
package geometry

import "math"

// Resolve returns the output dimensions for an image of ow x oh when
// rw x rh is requested. Without keepAspect the request is used verbatim.
// With keepAspect the result fits inside the request box, touching one side.
// Zero or negative request fields fall back to the original dimension.
func Resolve(ow, oh, rw, rh int, keepAspect bool) (int, int) {
	if rw <= 0 {
		rw = ow
	}
	if rh <= 0 {
		rh = oh
	}
	if !keepAspect || ow <= 0 || oh <= 0 {
		return atLeastOne(rw), atLeastOne(rh)
	}

	ratio := Ratio(ow, oh)
	if Ratio(rw, rh) > ratio {
		return ResolveWidth(rh, ratio), atLeastOne(rh)
	}
	return atLeastOne(rw), ResolveHeight(rw, ratio)
}

// ResolveWidth returns the width that keeps ratio (width/height) for height.
func ResolveWidth(height int, ratio float64) int {
	if ratio <= 0 {
		return atLeastOne(height)
	}
	return atLeastOne(round(float64(height) * ratio))
}

// ResolveHeight returns the height that keeps ratio (width/height) for width.
func ResolveHeight(width int, ratio float64) int {
	if ratio <= 0 {
		return atLeastOne(width)
	}
	return atLeastOne(round(float64(width) / ratio))
}

// Ratio returns width/height, or 0 for a degenerate height.
func Ratio(width, height int) float64 {
	if height <= 0 {
		return 0
	}
	return float64(width) / float64(height)
}

// round rounds half away from zero for the positive values used here.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
