package watermark

import (
	"image/color"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchor(t *testing.T) {
	tests := []struct {
		pos  Position
		x, y float64
	}{
		{TopLeft, 20, 44},
		{TopRight, 140, 44},
		{BottomLeft, 20, 80},
		{BottomRight, 140, 80},
		{Center, 80, 62},
	}

	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			x, y := Anchor(tt.pos, 200, 100, 40, 24)
			assert.InDelta(t, tt.x, x, 1e-9)
			assert.InDelta(t, tt.y, y, 1e-9)
		})
	}
}

func TestParsePosition(t *testing.T) {
	for in, want := range map[string]Position{
		"bottom-right": BottomRight,
		"BottomRight":  BottomRight,
		"top_left":     TopLeft,
		"Center":       Center,
		"top right":    TopRight,
	} {
		got, err := ParsePosition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePosition("middle")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}},
		{"#FF8000", color.NRGBA{255, 128, 0, 255}},
		{"ff8000", color.NRGBA{255, 128, 0, 255}},
		{"#f80", color.NRGBA{255, 136, 0, 255}},
		{"rgb(1, 2, 3)", color.NRGBA{1, 2, 3, 255}},
		{"RGB(10,20,30)", color.NRGBA{10, 20, 30, 255}},
		{"rgb(1,2)", white},
		{"rgb(300,0,0)", white},
		{"#12345", white},
		{"#gggggg", white},
		{"", white},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColor(tt.in))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.Opacity = 101
	cfg.FontSizePx = 8
	cfg.AngleDeg = 90
	cfg.Position = "middle"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "opacity")
	assert.ErrorContains(t, err, "font size")
	assert.ErrorContains(t, err, "angle")
	assert.ErrorContains(t, err, "middle")
}

func TestFontProvider(t *testing.T) {
	fp := NewGoFontProvider()

	for _, family := range append(FontFamilies, "Unknown Family") {
		face, err := fp.Face(family, 24)
		require.NoError(t, err, family)
		assert.Positive(t, MeasureText(face, "Watermark"), family)
		require.NoError(t, face.Close())
	}

	small, err := fp.Face("Arial", 12)
	require.NoError(t, err)
	large, err := fp.Face("arial", 48)
	require.NoError(t, err)
	assert.Greater(t, MeasureText(large, "abc"), MeasureText(small, "abc"))
	assert.Zero(t, MeasureText(small, ""))

	mono, err := fp.Face("Courier New", 20)
	require.NoError(t, err)
	assert.Equal(t, MeasureText(mono, "iiii"), MeasureText(mono, "WWWW"))
}

func enabledConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Opacity = 100
	cfg.Color = "#ffffff"
	return &cfg
}

func countChanged(a, b []byte) int {
	n := 0
	for i := 0; i < len(a); i += 4 {
		if a[i] != b[i] || a[i+1] != b[i+1] || a[i+2] != b[i+2] {
			n++
		}
	}
	return n
}

func TestApplyNoOps(t *testing.T) {
	src := testutil.Solid(t, 200, 100, color.NRGBA{0, 0, 0, 255})

	disabled := DefaultConfig()
	empty := enabledConfig()
	empty.Text = ""
	invisible := enabledConfig()
	invisible.Opacity = 0

	for name, cfg := range map[string]*Config{
		"nil":       nil,
		"disabled":  &disabled,
		"empty":     empty,
		"invisible": invisible,
	} {
		out, err := Apply(src, cfg, nil)
		require.NoError(t, err, name)
		assert.Equal(t, src.Pix, out.Pix, name)
	}
}

func TestApplyDrawsInAnchorRegion(t *testing.T) {
	src := testutil.Solid(t, 200, 100, color.NRGBA{0, 0, 0, 255})
	cfg := enabledConfig()
	cfg.Text = "WM"
	cfg.Position = TopLeft

	out, err := Apply(src, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, out.Width)
	assert.Positive(t, countChanged(src.Pix, out.Pix))

	// Nothing lands in the bottom-right quadrant.
	for y := 60; y < 100; y++ {
		for x := 120; x < 200; x++ {
			assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.At(x, y))
		}
	}
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, src.At(25, 35), "input must not change")
}

func TestApplyOpacityAndColor(t *testing.T) {
	src := testutil.Solid(t, 200, 100, color.NRGBA{0, 0, 0, 255})
	cfg := enabledConfig()
	cfg.Text = "IIIIIIII"
	cfg.FontSizePx = 48
	cfg.Color = "#ff0000"

	full, err := Apply(src, cfg, nil)
	require.NoError(t, err)

	cfg.Opacity = 50
	half, err := Apply(src, cfg, nil)
	require.NoError(t, err)

	var maxFull, maxHalf uint8
	for i := 0; i < len(src.Pix); i += 4 {
		maxFull = max(maxFull, full.Pix[i])
		maxHalf = max(maxHalf, half.Pix[i])
		assert.Zero(t, full.Pix[i+1], "green stays zero for red text")
	}
	assert.Equal(t, uint8(255), maxFull)
	assert.InDelta(t, 128, int(maxHalf), 2)
}

func TestApplyRotation(t *testing.T) {
	src := testutil.Solid(t, 300, 300, color.NRGBA{0, 0, 0, 255})
	cfg := enabledConfig()
	cfg.Text = "Rotated watermark"
	cfg.Position = Center

	straight, err := Apply(src, cfg, nil)
	require.NoError(t, err)

	cfg.AngleDeg = 30
	rotated, err := Apply(src, cfg, nil)
	require.NoError(t, err)

	assert.Positive(t, countChanged(src.Pix, rotated.Pix))
	assert.Positive(t, countChanged(straight.Pix, rotated.Pix))

	// Rotation keeps the drawing near the anchor's centre.
	assert.Zero(t, countChanged(src.Pix[:300*4*40], rotated.Pix[:300*4*40]))
}

func TestApplyDeterministic(t *testing.T) {
	src := testutil.Gradient(t, 160, 90)
	cfg := enabledConfig()
	cfg.AngleDeg = -15

	a, err := Apply(src, cfg, nil)
	require.NoError(t, err)
	b, err := Apply(src, cfg, NewGoFontProvider())
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}
