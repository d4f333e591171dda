// Package pipeline runs one image through resize, filters, watermark and encode.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/common"
	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/geometry"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/resample"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// Progress checkpoints reported by Process, in percent of one item.
const (
	progressStarted  = 0
	progressResized  = 30
	progressFiltered = 60
	progressMarked   = 75
	progressEncoded  = 100
)

// Item is one decoded input.
type Item struct {
	Name      string
	Image     *raster.Image
	SizeBytes int64 // encoded size of the source; 0 when unknown
}

// Processor runs the single-item pipeline. It is safe for concurrent use.
type Processor struct {
	fonts  watermark.FontProvider
	logger *slog.Logger
}

// NewProcessor returns a processor with the default font provider and logger.
func NewProcessor() *Processor {
	return &Processor{fonts: watermark.DefaultFontProvider()}
}

func (p *Processor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

var defaultProcessor = NewProcessor()

// ProcessOne runs img through the pipeline with settings. The input raster is
// never modified. onProgress, if set, receives non-decreasing percentages
// ending at 100 on success.
func ProcessOne(ctx context.Context, img *raster.Image, settings Settings, onProgress ProgressFunc) (*ProcessedImage, error) {
	return defaultProcessor.Process(ctx, Item{Image: img}, settings, onProgress)
}

// Process runs one item through the pipeline.
func (p *Processor) Process(ctx context.Context, item Item, settings Settings, onProgress ProgressFunc) (*ProcessedImage, error) {
	report := Monotonic(onProgress)
	total := common.NewNamedTimer("total")

	if err := item.Image.Validate(); err != nil {
		return nil, raster.Wrap("process", raster.ErrDecodeFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, raster.Wrap("process", raster.ErrCancelled, err)
	}
	report(progressStarted)

	// Work on a private copy; stages below may reuse it.
	work := item.Image.Clone()
	var timings StageTimings

	t := common.NewNamedTimer("resize")
	w, h := geometry.Resolve(work.Width, work.Height, settings.Width, settings.Height, settings.MaintainAspectRatio)
	if w != work.Width || h != work.Height {
		resized, err := resample.Resize(work, w, h)
		if err != nil {
			return nil, err
		}
		work = resized
	}
	timings.ResizeNs = p.stageDone(t, item.Name)
	report(progressResized)
	if err := ctx.Err(); err != nil {
		return nil, raster.Wrap("process", raster.ErrCancelled, err)
	}

	t = common.NewNamedTimer("filter")
	if !settings.Filters.IsIdentity() {
		filtered, err := filter.Apply(work, settings.Filters)
		if err != nil {
			return nil, err
		}
		work = filtered
	}
	timings.FilterNs = p.stageDone(t, item.Name)
	report(progressFiltered)
	if err := ctx.Err(); err != nil {
		return nil, raster.Wrap("process", raster.ErrCancelled, err)
	}

	t = common.NewNamedTimer("watermark")
	if settings.Watermark != nil && settings.Watermark.Enabled {
		marked, err := watermark.Apply(work, settings.Watermark, p.fonts)
		if err != nil {
			return nil, err
		}
		work = marked
	}
	timings.WatermarkNs = p.stageDone(t, item.Name)
	report(progressMarked)
	if err := ctx.Err(); err != nil {
		return nil, raster.Wrap("process", raster.ErrCancelled, err)
	}

	t = common.NewNamedTimer("encode")
	res, err := encoder.Encode(work, settings.OutputFormat, settings.Quality, encoder.Options{
		OriginalSize:        item.SizeBytes,
		AllowLossyDownscale: settings.AllowLossyDownscale,
	})
	if err != nil {
		return nil, err
	}
	timings.EncodeNs = p.stageDone(t, item.Name)
	timings.TotalNs = total.Stop().Nanoseconds()
	report(progressEncoded)

	out := &ProcessedImage{
		Name:       item.Name,
		Bytes:      res.Bytes,
		ByteSize:   int64(len(res.Bytes)),
		Format:     res.Format,
		Width:      res.Width,
		Height:     res.Height,
		Downscaled: res.Downscaled,
		Timings:    timings,
	}
	p.log().Debug("image processed",
		"name", item.Name, "format", string(out.Format),
		"width", out.Width, "height", out.Height, "bytes", out.ByteSize,
		"downscaled", out.Downscaled, "duration", time.Duration(timings.TotalNs))
	return out, nil
}

func (p *Processor) stageDone(t *common.Timer, name string) int64 {
	d := t.Stop()
	p.log().Debug("stage completed", "stage", t.Name(), "name", name, "duration", d)
	return d.Nanoseconds()
}
