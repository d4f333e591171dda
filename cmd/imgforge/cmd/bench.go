package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/benchmark"
	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/spf13/cobra"
)

func newBenchCommand(st *cliState) *cobra.Command {
	benchCmd := &cobra.Command{
		Use:   "bench [file]",
		Short: "Time each processing stage",
		Long: `Run every pipeline stage and the full pipeline repeatedly on one image
and report average duration, throughput and allocations.

Without a file a synthetic gradient of --synthetic-size is used.

Examples:
  imgforge bench photo.jpg --iterations 10
  imgforge bench --synthetic-size 3840x2160 --format webp --output bench.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, st, args)
		},
	}

	addProcessingFlags(benchCmd)
	benchCmd.Flags().IntP("iterations", "n", 3, "iterations per case")
	benchCmd.Flags().String("synthetic-size", "1920x1080", "size of the generated image when no file is given")
	benchCmd.Flags().StringSlice("case", nil, "only run the named cases")
	benchCmd.Flags().StringP("output", "o", "", "also write results as CSV to this file")
	return benchCmd
}

func runBench(cmd *cobra.Command, st *cliState, args []string) error {
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations < 1 {
		return fmt.Errorf("invalid --iterations %d (must be positive)", iterations)
	}

	proc, err := processingFromFlags(cmd, st.cfg.Processing)
	if err != nil {
		return err
	}
	settings, err := proc.Settings()
	if err != nil {
		return err
	}

	var img *raster.Image
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		img, _, err = decoder.Decode(data, args[0], decoder.Options{MaxBytes: proc.MaxInputBytes()})
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", args[0], err)
		}
	} else {
		size, _ := cmd.Flags().GetString("synthetic-size")
		w, h, err := parseSize(size)
		if err != nil {
			return err
		}
		if img, err = syntheticImage(w, h); err != nil {
			return err
		}
	}

	suite, err := benchmark.PipelineSuite(img, settings)
	if err != nil {
		return err
	}

	var results []benchmark.Result
	if only, _ := cmd.Flags().GetStringSlice("case"); len(only) > 0 {
		for _, name := range only {
			results = append(results, suite.Run(cmd.Context(), name, iterations))
		}
	} else {
		results = suite.RunAll(cmd.Context(), iterations)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Image: %dx%d, %d iterations per case\n", img.Width, img.Height, iterations)
	if err := benchmark.WriteText(out, results); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := writeBenchCSV(path, results); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Results written to %s\n", path)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
		}
	}
	return nil
}

func writeBenchCSV(path string, results []benchmark.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := benchmark.WriteCSV(f, results); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || w < 1 || h < 1 {
		return 0, 0, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", s)
	}
	return w, h, nil
}

// syntheticImage draws a horizontal and vertical colour ramp.
func syntheticImage(w, h int) (*raster.Image, error) {
	img, err := raster.New(w, h)
	if err != nil {
		return nil, err
	}
	for y := range h {
		for x := range w {
			i := (y*w + x) * 4
			img.Pix[i] = uint8(x * 255 / max(w-1, 1))
			img.Pix[i+1] = uint8(y * 255 / max(h-1, 1))
			img.Pix[i+2] = uint8((x + y) * 255 / max(w+h-2, 1))
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}
