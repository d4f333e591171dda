package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/imgforge/internal/batch"
	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/spf13/cobra"
)

func newProcessCommand(st *cliState) *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a single image",
		Long: `Decode one image, apply resize, filters and watermark, and write the
encoded result.

The output defaults to <name>.<ext> in the current directory, where ext
follows the output format. Use --output to choose another path.

Examples:
  imgforge process photo.jpg --format webp --quality 80
  imgforge process photo.png --width 640 --height 480 --preset vintage -o small.jpg
  imgforge process photo.jpg --watermark-text "(c) ACME" --watermark-position center`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, st, args[0])
		},
	}

	addProcessingFlags(processCmd)
	processCmd.Flags().StringP("output", "o", "", "output file path")
	processCmd.Flags().Bool("progress", false, "show stage progress")
	return processCmd
}

func runProcess(cmd *cobra.Command, st *cliState, input string) error {
	proc, err := processingFromFlags(cmd, st.cfg.Processing)
	if err != nil {
		return err
	}
	processor, settings, err := proc.Builder().WithLogger(slog.Default()).Build()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = batch.OutputName(filepath.Base(input), settings.OutputFormat)
	}
	if sameFile(input, output) {
		return errors.New("output would overwrite the input; choose another path with --output")
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	img, meta, err := decoder.Decode(data, input, decoder.Options{MaxBytes: proc.MaxInputBytes()})
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", input, err)
	}
	slog.Debug("Decoded input", "file", input, "format", meta.Format, "width", img.Width, "height", img.Height)

	var onProgress pipeline.ProgressFunc
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		errOut := cmd.ErrOrStderr()
		onProgress = func(p float64) {
			_, _ = fmt.Fprintf(errOut, "\rProcessing: %3.0f%%", p)
			if p >= 100 {
				_, _ = fmt.Fprintln(errOut)
			}
		}
	}

	res, err := processor.Process(cmd.Context(), pipeline.Item{
		Name:      input,
		Image:     img,
		SizeBytes: int64(len(data)),
	}, settings, pipeline.Monotonic(onProgress))
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", input, err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s %dx%d, %d -> %d bytes, %d%% smaller)\n",
		input, output, res.Format.Label(), res.Width, res.Height,
		len(data), res.ByteSize, res.Reduction(int64(len(data))))
	if res.Downscaled {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Dimensions were reduced to keep the PNG smaller than the input.")
	}
	return nil
}

// sameFile reports whether a and b name the same existing file.
func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
