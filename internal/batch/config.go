package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/pipeline"
)

// Config holds the file-level options of a batch run.
type Config struct {
	// Worker settings
	Workers       int
	MaxInputBytes int64

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	OutputDir    string
	ReportFormat string
	ReportFile   string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// Result holds the outcome of a file batch.
type Result struct {
	JobID       string
	Status      Status
	Files       []string
	InputSizes  []int64
	Outputs     []string
	Results     []*pipeline.ProcessedImage
	Errors      []ItemError
	Duration    time.Duration
	WorkerCount int
}

// Failed reports the number of items without a result.
func (r *Result) Failed() int {
	return len(r.Errors)
}

// RunFiles discovers the images named by paths, runs them as one batch and,
// when cfg.OutputDir is set, writes each result as it completes. Item failures
// are reported in the Result; the returned error covers discovery, reading
// and writing.
func RunFiles(ctx context.Context, paths []string, settings pipeline.Settings, cfg *Config) (*Result, error) {
	files, err := DiscoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	// Files are read by the worker that processes them; a missing or
	// oversized file fails only its own item.
	inputs := make([]Input, len(files))
	sizes := make([]int64, len(files))
	for i, file := range files {
		inputs[i] = Input{Name: file, Path: file}
		if info, err := os.Stat(file); err == nil {
			sizes[i] = info.Size()
		}
	}

	var outputs []string
	if cfg.OutputDir != "" {
		outputs = planOutputs(cfg.OutputDir, files, settings.OutputFormat)
	}

	// Progress always reaches the debug log; the console bar is opt-in.
	callback := pipeline.NewMultiProgressCallback(
		pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "batch: ").WithStep(25),
	)
	if cfg.ShowProgress && !cfg.Quiet {
		console := pipeline.NewConsoleProgressCallback(cfg.ProgressWriter, "Processing: ")
		if cfg.ProgressInterval > 0 {
			console = console.WithUpdateInterval(cfg.ProgressInterval)
		}
		callback.Add(console)
	}

	var (
		writeMu   sync.Mutex
		writeErrs []error
	)
	onItemDone := func(index int, res *pipeline.ProcessedImage, _ error) {
		if res == nil || outputs == nil {
			return
		}
		if err := writeOutput(outputs[index], res.Bytes); err != nil {
			writeMu.Lock()
			writeErrs = append(writeErrs, err)
			writeMu.Unlock()
			return
		}
		slog.Debug("batch output written", "path", outputs[index], "bytes", res.ByteSize)
	}

	workers := max(cfg.Workers, 1)
	job := ProcessBatch(ctx, inputs, settings, Options{
		Workers:       workers,
		MaxInputBytes: cfg.MaxInputBytes,
		OnItemDone:    onItemDone,
		Callback:      callback,
	})

	snap := job.Snapshot()
	return &Result{
		JobID:       snap.ID,
		Status:      snap.Status,
		Files:       files,
		InputSizes:  sizes,
		Outputs:     outputs,
		Results:     snap.Results,
		Errors:      snap.Errors,
		Duration:    snap.Duration(),
		WorkerCount: workers,
	}, errors.Join(writeErrs...)
}

// FormatResults formats the batch results as json, csv or text.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted report to outputFile, or to w when outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	processed := len(r.Files) - r.Failed()
	var inBytes, outBytes int64
	for i, res := range r.Results {
		if res == nil {
			continue
		}
		inBytes += r.InputSizes[i]
		outBytes += res.ByteSize
	}

	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if processed > 0 {
		avg := r.Duration / time.Duration(processed)
		_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", avg.Round(time.Millisecond))
		if r.Duration > 0 {
			_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", float64(processed)/r.Duration.Seconds())
		}
	}
	if inBytes > 0 {
		_, _ = fmt.Fprintf(w, "  Bytes: %d -> %d\n", inBytes, outBytes)
	}
}
