package benchmark

import (
	"context"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/geometry"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/resample"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// PipelineSuite registers one case per stage plus the full pipeline, all
// reading img. Stages that settings leave disabled are measured with a
// representative configuration instead: the vivid preset for filters and
// the default watermark with its text enabled.
func PipelineSuite(img *raster.Image, settings pipeline.Settings) (*Suite, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	mp := float64(img.Width*img.Height) / 1e6
	w, h := geometry.Resolve(img.Width, img.Height, settings.Width, settings.Height, settings.MaintainAspectRatio)

	filters := settings.Filters
	if filters.IsIdentity() {
		p, err := filter.LookupPreset("vivid")
		if err != nil {
			return nil, err
		}
		filters = p.Filters
	}

	mark := watermark.DefaultConfig()
	if settings.Watermark != nil {
		mark = *settings.Watermark
	}
	mark.Enabled = true
	fonts := watermark.DefaultFontProvider()

	s := NewSuite()
	s.Add(Case{Name: "resize", Megapixels: mp, Run: func(context.Context) error {
		_, err := resample.Resize(img, w, h)
		return err
	}})
	s.Add(Case{Name: "filter", Megapixels: mp, Run: func(context.Context) error {
		_, err := filter.Apply(img, filters)
		return err
	}})
	s.Add(Case{Name: "watermark", Megapixels: mp, Run: func(context.Context) error {
		_, err := watermark.Apply(img, &mark, fonts)
		return err
	}})
	for _, f := range encoder.Formats {
		s.Add(Case{Name: "encode-" + string(f), Megapixels: mp, Run: func(context.Context) error {
			_, err := encoder.Encode(img, f, settings.Quality, encoder.Options{})
			return err
		}})
	}
	s.Add(Case{Name: "pipeline", Megapixels: mp, Run: func(ctx context.Context) error {
		_, err := pipeline.ProcessOne(ctx, img, settings, nil)
		return err
	}})
	return s, nil
}
