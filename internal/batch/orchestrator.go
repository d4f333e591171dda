package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"golang.org/x/sync/errgroup"
)

// decodeShare is the part of an item's progress attributed to decoding raw bytes.
const decodeShare = 0.2

// Options configures a batch run.
type Options struct {
	// Workers bounds concurrent items. Values below 2 run items strictly in order.
	Workers int
	// MaxInputBytes is the per-item size limit; 0 uses decoder.DefaultMaxBytes.
	MaxInputBytes int64
	// Processor runs the pipeline; nil uses a default processor.
	Processor *pipeline.Processor
	// OnProgress receives the overall percentage, never decreasing.
	OnProgress pipeline.ProgressFunc
	// OnItemDone is called once per item with either a result or an error.
	OnItemDone func(index int, result *pipeline.ProcessedImage, err error)
	// Callback receives lifecycle events, for example a console progress bar.
	Callback pipeline.ProgressCallback
}

// ProcessBatch creates a job for inputs and runs it to completion.
func ProcessBatch(ctx context.Context, inputs []Input, settings pipeline.Settings, opts Options) *Job {
	job := NewJob(inputs, settings)
	job.Run(ctx, opts)
	return job
}

// progressAggregator turns per-item fractions into the overall percentage.
type progressAggregator struct {
	mu        sync.Mutex
	fractions []float64
	report    pipeline.ProgressFunc
}

func (a *progressAggregator) set(index int, fraction float64) {
	a.mu.Lock()
	if fraction > a.fractions[index] {
		a.fractions[index] = min(fraction, 1)
	}
	var sum float64
	for _, f := range a.fractions {
		sum += f
	}
	percent := sum / float64(len(a.fractions)) * 100
	a.mu.Unlock()

	a.report(percent)
}

// Run processes every input. It must be called at most once.
// Cancelling ctx stops new items from starting; each unstarted item is
// recorded with a cancelled error and the job ends Failed.
func (j *Job) Run(ctx context.Context, opts Options) {
	callback := opts.Callback
	if callback == nil {
		callback = pipeline.NoOpProgressCallback{}
	}
	proc := opts.Processor
	if proc == nil {
		proc = pipeline.NewProcessor()
	}

	j.mu.Lock()
	j.Status = StatusProcessing
	j.StartedAt = time.Now()
	j.mu.Unlock()

	total := len(j.Inputs)
	workers := max(opts.Workers, 1)
	slog.Info("batch started", "job_id", j.ID, "items", total, "workers", workers)
	callback.OnStart(total)

	agg := &progressAggregator{
		fractions: make([]float64, total),
		report: pipeline.Monotonic(func(p float64) {
			j.setProgress(p)
			if opts.OnProgress != nil {
				opts.OnProgress(p)
			}
			callback.OnProgress(p)
		}),
	}

	item := func(i int) {
		res, err := j.processItem(ctx, i, proc, opts.MaxInputBytes, agg)
		if err != nil {
			j.fail(i, err)
			slog.Warn("batch item failed", "job_id", j.ID, "index", i, "name", j.Inputs[i].Name, "error", err)
		} else {
			j.fill(i, res)
		}
		agg.set(i, 1)
		callback.OnItem(i, err)
		if opts.OnItemDone != nil {
			opts.OnItemDone(i, res, err)
		}
	}

	if workers == 1 || total < 2 {
		for i := range total {
			if ctx.Err() != nil {
				j.cancelFrom(i, ctx.Err(), callback, opts)
				break
			}
			item(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range total {
			if ctx.Err() != nil {
				j.cancelFrom(i, ctx.Err(), callback, opts)
				break
			}
			g.Go(func() error {
				item(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	j.finish(agg, callback)
}

// processItem decodes (when needed) and runs the pipeline for one index.
func (j *Job) processItem(ctx context.Context, i int, proc *pipeline.Processor, maxBytes int64, agg *progressAggregator) (*pipeline.ProcessedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, raster.Wrap("batch", raster.ErrCancelled, err)
	}
	in := j.Inputs[i]

	img := in.Image
	size := in.SizeBytes()
	share := 0.0
	if img == nil {
		data := in.Data
		if data == nil && in.Path != "" {
			read, err := readInput(in.Path, maxBytes)
			if err != nil {
				return nil, err
			}
			data = read
			size = int64(len(read))
		}
		decoded, _, err := decoder.Decode(data, in.Name, decoder.Options{MaxBytes: maxBytes})
		if err != nil {
			return nil, err
		}
		img = decoded
		share = decodeShare
		agg.set(i, share)
	}

	return proc.Process(ctx, pipeline.Item{Name: in.Name, Image: img, SizeBytes: size}, j.Settings,
		func(p float64) { agg.set(i, share+(1-share)*p/100) })
}

// readInput loads a file after checking its size against maxBytes.
func readInput(path string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = decoder.DefaultMaxBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, raster.Wrap("read", raster.ErrDecodeFailure, err)
	}
	if info.Size() > maxBytes {
		return nil, &raster.ProcessingError{
			Op:   "read",
			Kind: raster.ErrFileTooLarge,
			Err:  fmt.Errorf("%s is %d bytes, limit is %d bytes", path, info.Size(), maxBytes),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, raster.Wrap("read", raster.ErrDecodeFailure, err)
	}
	return data, nil
}

// cancelFrom records a cancelled error for every index from start on.
func (j *Job) cancelFrom(start int, cause error, callback pipeline.ProgressCallback, opts Options) {
	slog.Info("batch cancelled", "job_id", j.ID, "unstarted", len(j.Inputs)-start)
	for i := start; i < len(j.Inputs); i++ {
		err := &raster.ProcessingError{
			Op:   "batch",
			Kind: raster.ErrCancelled,
			Err:  fmt.Errorf("item %d not started: %w", i, cause),
		}
		j.fail(i, err)
		callback.OnItem(i, err)
		if opts.OnItemDone != nil {
			opts.OnItemDone(i, nil, err)
		}
	}
}

func (j *Job) finish(agg *progressAggregator, callback pipeline.ProgressCallback) {
	j.mu.Lock()
	sort.Slice(j.Errors, func(a, b int) bool { return j.Errors[a].Index < j.Errors[b].Index })
	j.Status = StatusCompleted
	if len(j.Errors) > 0 {
		j.Status = StatusFailed
	}
	j.FinishedAt = time.Now()
	failed := len(j.Errors)
	status := j.Status
	j.mu.Unlock()

	agg.report(100)
	callback.OnComplete(len(j.Inputs)-failed, failed)
	slog.Info("batch finished", "job_id", j.ID, "status", string(status),
		"failed", failed, "duration", j.FinishedAt.Sub(j.StartedAt).Round(time.Millisecond))
}

// Err summarises the item errors of a finished job, or nil.
func (s Snapshot) Err() error {
	if len(s.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(s.Errors))
	for i, e := range s.Errors {
		errs[i] = fmt.Errorf("item %d (%s): %s", e.Index, e.Name, e.Message)
	}
	return errors.Join(errs...)
}
