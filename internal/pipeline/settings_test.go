package pipeline

import (
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"format", func(s *Settings) { s.OutputFormat = "bmp" }, "unsupported output format"},
		{"quality", func(s *Settings) { s.Quality = -1 }, "quality"},
		{"width", func(s *Settings) { s.Width = MaxDimension + 1 }, "width"},
		{"height", func(s *Settings) { s.Height = -5 }, "height"},
		{"filters", func(s *Settings) { s.Filters = filter.Set{BlurRadius: 11} }, "filters: blur"},
		{"watermark", func(s *Settings) {
			wm := watermark.DefaultConfig()
			wm.Enabled = true
			wm.Opacity = 500
			s.Watermark = &wm
		}, "watermark: opacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorContains(t, s.Validate(), tt.want)
		})
	}
}

func TestSettingsClone(t *testing.T) {
	wm := watermark.DefaultConfig()
	s := DefaultSettings()
	s.Watermark = &wm

	c := s.Clone()
	c.Watermark.Text = "other"
	assert.Equal(t, "Watermark", s.Watermark.Text)

	assert.Nil(t, DefaultSettings().Clone().Watermark)
}
