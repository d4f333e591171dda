package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// Builder assembles Settings and a Processor with fluent configuration.
type Builder struct {
	settings Settings
	fonts    watermark.FontProvider
	logger   *slog.Logger
	err      error
}

// NewBuilder creates a builder starting from DefaultSettings.
func NewBuilder() *Builder { return &Builder{settings: DefaultSettings()} }

// FromSettings creates a builder starting from s.
func FromSettings(s Settings) *Builder { return &Builder{settings: s.Clone()} }

// WithFormat sets the output format by name. Unknown names are reported by Build.
func (b *Builder) WithFormat(name string) *Builder {
	f, err := encoder.ParseFormat(name)
	if err != nil {
		b.err = err
		return b
	}
	b.settings.OutputFormat = f
	return b
}

// WithQuality sets the encode quality (0..100).
func (b *Builder) WithQuality(q int) *Builder {
	b.settings.Quality = q
	return b
}

// WithDimensions sets the requested box. Zero keeps the decoded dimension.
func (b *Builder) WithDimensions(width, height int) *Builder {
	b.settings.Width = width
	b.settings.Height = height
	return b
}

// WithAspectRatio toggles aspect-ratio locking.
func (b *Builder) WithAspectRatio(keep bool) *Builder {
	b.settings.MaintainAspectRatio = keep
	return b
}

// WithFilters replaces the filter set.
func (b *Builder) WithFilters(s filter.Set) *Builder {
	b.settings.Filters = s
	return b
}

// WithPreset replaces the filter set with a named preset.
func (b *Builder) WithPreset(name string) *Builder {
	if name == "" {
		return b
	}
	p, err := filter.LookupPreset(name)
	if err != nil {
		b.err = err
		return b
	}
	b.settings.Filters = p.Filters
	return b
}

// WithWatermark sets the watermark; nil removes it.
func (b *Builder) WithWatermark(cfg *watermark.Config) *Builder {
	if cfg == nil {
		b.settings.Watermark = nil
		return b
	}
	wm := *cfg
	b.settings.Watermark = &wm
	return b
}

// WithLossyDownscale toggles the PNG downscale policy.
func (b *Builder) WithLossyDownscale(allow bool) *Builder {
	b.settings.AllowLossyDownscale = allow
	return b
}

// WithFontProvider overrides where watermark faces come from.
func (b *Builder) WithFontProvider(fp watermark.FontProvider) *Builder {
	b.fonts = fp
	return b
}

// WithLogger sets the logger used for stage diagnostics.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Settings returns a copy of the current settings.
func (b *Builder) Settings() Settings { return b.settings.Clone() }

// Validate checks the accumulated settings.
func (b *Builder) Validate() error {
	if b.err != nil {
		return b.err
	}
	if err := b.settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Build validates the settings and returns a processor plus the settings snapshot.
func (b *Builder) Build() (*Processor, Settings, error) {
	if err := b.Validate(); err != nil {
		return nil, Settings{}, err
	}
	p := NewProcessor()
	if b.fonts != nil {
		p.fonts = b.fonts
	}
	p.logger = b.logger
	return p, b.Settings(), nil
}
