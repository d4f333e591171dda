package filter

import (
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genColor() gopter.Gen {
	return gen.SliceOfN(4, gen.UInt8()).Map(func(v []uint8) color.NRGBA {
		return color.NRGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
	})
}

func genPixelSet() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
		gen.Bool(),
	).Map(func(vals []interface{}) Set {
		return Set{
			Brightness: vals[0].(int),
			Contrast:   vals[1].(int),
			Saturation: vals[2].(int),
			Sepia:      vals[3].(int),
			Grayscale:  vals[4].(int),
			Vintage:    vals[5].(bool),
		}
	})
}

// TestAdjustPixel_Sequential verifies the combined pass equals running each stage on its own, in order.
func TestAdjustPixel_Sequential(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("single pass equals sequential stages", prop.ForAll(
		func(c color.NRGBA, s Set) bool {
			stages := []Set{
				{Brightness: s.Brightness},
				{Contrast: s.Contrast},
				{Saturation: s.Saturation},
				{Sepia: s.Sepia},
				{Grayscale: s.Grayscale},
				{Vintage: s.Vintage},
			}
			seq := c
			for _, stage := range stages {
				seq = adjustPixel(seq, stage)
			}
			return seq == adjustPixel(c, s)
		},
		genColor(),
		genPixelSet(),
	))

	properties.Property("alpha is never changed", prop.ForAll(
		func(c color.NRGBA, s Set) bool {
			return adjustPixel(c, s).A == c.A
		},
		genColor(),
		genPixelSet(),
	))

	properties.Property("zero set is the identity", prop.ForAll(
		func(c color.NRGBA) bool {
			return adjustPixel(c, Set{}) == c
		},
		genColor(),
	))

	properties.TestingRun(t)
}
