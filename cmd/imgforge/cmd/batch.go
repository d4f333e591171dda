package cmd

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/batch"
	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCommand(st *cliState) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Process multiple images in parallel",
		Long: `Process image files and directories as one batch job. Items run on a
bounded worker pool; one failing image does not stop the others.

Supported inputs: JPEG, PNG, WebP, GIF, BMP, TIFF and TIFF-based RAW

Examples:
  imgforge batch *.jpg *.png --output-dir out
  imgforge batch images/ --recursive --workers 8 --format webp
  imgforge batch images/ --report json --report-file report.json --progress`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, st, args)
		},
	}

	addProcessingFlags(batchCmd)

	f := batchCmd.Flags()
	// Worker and output flags
	f.IntP("workers", "w", 0, "number of parallel workers (default from config, 1)")
	f.StringP("output-dir", "o", "", "directory for processed images (no files are written when empty)")
	f.String("report", "", "report format: text, json, csv")
	f.String("report-file", "", "write the report to a file instead of stdout")

	// File discovery flags
	f.BoolP("recursive", "r", false, "recursively scan directories")
	f.StringSlice("include", nil, "file patterns to include (e.g. *.jpg)")
	f.StringSlice("exclude", nil, "file patterns to exclude")

	// Progress flags
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Duration("progress-interval", 500*time.Millisecond, "progress update interval")
	f.Bool("quiet", false, "suppress progress and status output")
	f.Bool("stats", false, "print processing statistics after the report")
	return batchCmd
}

// batchConfigFromFlags maps the batch section of the configuration to a
// batch.Config, with changed flags taking precedence.
func batchConfigFromFlags(cmd *cobra.Command, cfg *config.Config) *batch.Config {
	f := cmd.Flags()
	bc := &batch.Config{
		Workers:         cfg.Batch.Workers,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.IncludePatterns,
		ExcludePatterns: cfg.Batch.ExcludePatterns,
		OutputDir:       cfg.Batch.OutputDir,
		ReportFormat:    cfg.Batch.Report,
		ProgressWriter:  cmd.ErrOrStderr(),
	}

	if f.Changed("workers") {
		bc.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("output-dir") {
		bc.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("report") {
		bc.ReportFormat, _ = f.GetString("report")
	}
	if f.Changed("recursive") {
		bc.Recursive, _ = f.GetBool("recursive")
	}
	if f.Changed("include") {
		bc.IncludePatterns, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	}

	bc.ReportFile, _ = f.GetString("report-file")
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.ProgressInterval, _ = f.GetDuration("progress-interval")
	bc.Quiet, _ = f.GetBool("quiet")

	if bc.ReportFormat == "" {
		bc.ReportFormat = batch.ReportText
	}
	return bc
}

func runBatch(cmd *cobra.Command, st *cliState, args []string) error {
	proc, err := processingFromFlags(cmd, st.cfg.Processing)
	if err != nil {
		return err
	}
	settings, err := proc.Settings()
	if err != nil {
		return err
	}

	bc := batchConfigFromFlags(cmd, st.cfg)
	bc.MaxInputBytes = proc.MaxInputBytes()
	if bc.Workers <= 0 {
		return fmt.Errorf("invalid --workers %d (must be positive)", bc.Workers)
	}

	result, runErr := batch.RunFiles(cmd.Context(), args, settings, bc)
	if result == nil {
		return fmt.Errorf("batch processing failed: %w", runErr)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.ReportFormat, bc.ReportFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		result.PrintStats(cmd.OutOrStdout(), bc.Quiet)
	}

	if runErr != nil {
		return fmt.Errorf("failed to write outputs: %w", runErr)
	}
	if n := result.Failed(); n > 0 {
		return fmt.Errorf("%d of %d images failed", n, len(result.Files))
	}
	return nil
}
