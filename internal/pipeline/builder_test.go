package pipeline

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func TestBuilderDefaults(t *testing.T) {
	_, s, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.Equal(t, encoder.JPEG, s.OutputFormat)
	assert.Equal(t, 75, s.Quality)
	assert.Equal(t, 1920, s.Width)
	assert.Equal(t, 1080, s.Height)
	assert.True(t, s.MaintainAspectRatio)
}

func TestBuilderFluent(t *testing.T) {
	wm := watermark.DefaultConfig()
	wm.Enabled = true

	b := NewBuilder().
		WithFormat("PNG").
		WithQuality(60).
		WithDimensions(320, 0).
		WithAspectRatio(false).
		WithPreset("vivid").
		WithWatermark(&wm).
		WithLossyDownscale(false)

	p, s, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, encoder.PNG, s.OutputFormat)
	assert.Equal(t, 60, s.Quality)
	assert.Equal(t, 320, s.Width)
	assert.Equal(t, 0, s.Height)
	assert.False(t, s.MaintainAspectRatio)
	assert.Equal(t, filter.Set{Brightness: 20, Contrast: 15, Saturation: 10}, s.Filters)
	assert.False(t, s.AllowLossyDownscale)

	// The builder holds its own copy of the watermark.
	wm.Text = "changed"
	assert.Equal(t, "Watermark", s.Watermark.Text)
	s.Watermark.Text = "mutated"
	assert.Equal(t, "Watermark", b.Settings().Watermark.Text)
}

func TestBuilderErrors(t *testing.T) {
	_, _, err := NewBuilder().WithFormat("gif").Build()
	assert.ErrorContains(t, err, "unsupported output format")

	_, _, err = NewBuilder().WithPreset("nope").Build()
	assert.ErrorContains(t, err, "unknown preset")

	_, _, err = NewBuilder().WithQuality(101).Build()
	assert.ErrorContains(t, err, "quality")

	_, _, err = NewBuilder().WithFilters(filter.Set{Sharpen: 200}).Build()
	assert.ErrorContains(t, err, "sharpen")
}

type countingFonts struct {
	watermark.FontProvider
	calls int
}

func (c *countingFonts) Face(family string, size int) (font.Face, error) {
	c.calls++
	return c.FontProvider.Face(family, size)
}

func TestBuilderFontProvider(t *testing.T) {
	fonts := &countingFonts{FontProvider: watermark.NewGoFontProvider()}
	wm := watermark.DefaultConfig()
	wm.Enabled = true

	p, s, err := NewBuilder().WithFormat("png").WithDimensions(0, 0).WithWatermark(&wm).WithFontProvider(fonts).Build()
	require.NoError(t, err)

	_, err = p.Process(context.Background(), Item{Image: testutil.Gradient(t, 120, 80)}, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fonts.calls)
}

func TestFromSettings(t *testing.T) {
	base := DefaultSettings()
	base.Quality = 33
	_, s, err := FromSettings(base).WithQuality(44).Build()
	require.NoError(t, err)
	assert.Equal(t, 44, s.Quality)
	assert.Equal(t, 33, base.Quality)
}
