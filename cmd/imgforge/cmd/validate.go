package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/spf13/cobra"
)

// fileValidation is one line of validate output.
type fileValidation struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newValidateCommand(st *cliState) *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate <files...>",
		Short: "Check whether files are acceptable inputs",
		Long: `Run the pre-decode checks on each file: size limit, extension and
content signature. With --decode the image is also fully decoded, which
catches truncated or corrupt data.

Examples:
  imgforge validate photo.jpg scan.tiff
  imgforge validate uploads/*.png --decode --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, st, args)
		},
	}

	validateCmd.Flags().Int("max-size", 0, "maximum input file size in MB (default from config)")
	validateCmd.Flags().Bool("decode", false, "also decode each image")
	validateCmd.Flags().Bool("json", false, "print results as JSON")
	return validateCmd
}

func runValidate(cmd *cobra.Command, st *cliState, args []string) error {
	maxBytes := st.cfg.Processing.MaxInputBytes()
	if cmd.Flags().Changed("max-size") {
		mb, _ := cmd.Flags().GetInt("max-size")
		if mb <= 0 {
			return fmt.Errorf("invalid --max-size %d (must be positive)", mb)
		}
		maxBytes = int64(mb) << 20
	}
	decode, _ := cmd.Flags().GetBool("decode")

	results := make([]fileValidation, len(args))
	invalid := 0
	for i, path := range args {
		results[i] = validateFile(path, maxBytes, decode)
		if !results[i].Valid {
			invalid++
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		for _, r := range results {
			switch {
			case r.Valid && r.Width > 0:
				_, _ = fmt.Fprintf(out, "%s: valid (%s, %dx%d)\n", r.File, r.Format, r.Width, r.Height)
			case r.Valid:
				_, _ = fmt.Fprintf(out, "%s: valid (%s)\n", r.File, r.Format)
			default:
				_, _ = fmt.Fprintf(out, "%s: invalid [%s] %s\n", r.File, r.Code, r.Reason)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d files are invalid", invalid, len(args))
	}
	return nil
}

func validateFile(path string, maxBytes int64, decode bool) fileValidation {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileValidation{File: path, Code: "read_failure", Reason: err.Error()}
	}

	v := decoder.ValidateInput(data, path, maxBytes)
	res := fileValidation{File: path, Valid: v.Valid, Format: v.Format, Code: v.Code, Reason: v.Reason}
	if !v.Valid || !decode {
		return res
	}

	_, meta, err := decoder.Decode(data, path, decoder.Options{MaxBytes: maxBytes})
	if err != nil {
		res.Valid = false
		res.Code = raster.KindOf(err)
		res.Reason = err.Error()
		return res
	}
	res.Format = meta.Format
	res.Width = meta.Width
	res.Height = meta.Height
	return res
}
