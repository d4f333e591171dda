package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
	"github.com/spf13/cobra"
)

// addProcessingFlags registers the pipeline settings flags shared by process and batch.
func addProcessingFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	// Output flags
	f.StringP("format", "f", "", "output format: jpeg, png, webp")
	f.IntP("quality", "q", 0, "encode quality for lossy formats (0-100)")
	f.Int("width", 0, "target box width in pixels (0 keeps the decoded width)")
	f.Int("height", 0, "target box height in pixels (0 keeps the decoded height)")
	f.Bool("keep-aspect", true, "fit inside the box keeping the aspect ratio")
	f.Bool("allow-lossy-downscale", true, "let PNG output shrink its dimensions to stay below the input size")
	f.Int("max-size", 0, "maximum input file size in MB")

	// Filter flags
	f.String("preset", "", "filter preset: "+strings.Join(filter.PresetNames(), ", "))
	f.Int("brightness", 0, "brightness adjustment (-100..100)")
	f.Int("contrast", 0, "contrast adjustment (-100..100)")
	f.Int("saturation", 0, "saturation adjustment (-100..100)")
	f.Float64("blur", 0, "gaussian blur radius in pixels (0..10)")
	f.Int("sharpen", 0, "sharpen amount (0..100)")
	f.Int("sepia", 0, "sepia amount (0..100)")
	f.Int("grayscale", 0, "grayscale amount (0..100)")
	f.Bool("vintage", false, "apply the vintage tone")

	// Watermark flags
	f.String("watermark-text", "", "watermark text (enables the watermark)")
	f.String("watermark-position", "", "watermark position: top-left, top-right, bottom-left, bottom-right, center")
	f.Int("watermark-opacity", 0, "watermark opacity (0..100)")
	f.Int("watermark-size", 0, "watermark font size in pixels (12..200)")
	f.String("watermark-color", "", "watermark color as #rrggbb")
	f.String("watermark-font", "", "watermark font family: "+strings.Join(watermark.FontFamilies, ", "))
	f.Int("watermark-angle", 0, "watermark rotation in degrees (-45..45)")
}

// processingFromFlags overlays changed processing flags onto the configured
// defaults. A preset replaces the configured filters; individual filter flags
// then adjust the result.
func processingFromFlags(cmd *cobra.Command, p config.ProcessingConfig) (config.ProcessingConfig, error) {
	f := cmd.Flags()

	if f.Changed("format") {
		p.Format, _ = f.GetString("format")
	}
	if f.Changed("quality") {
		p.Quality, _ = f.GetInt("quality")
	}
	if f.Changed("width") {
		p.Width, _ = f.GetInt("width")
	}
	if f.Changed("height") {
		p.Height, _ = f.GetInt("height")
	}
	if f.Changed("keep-aspect") {
		p.MaintainAspectRatio, _ = f.GetBool("keep-aspect")
	}
	if f.Changed("allow-lossy-downscale") {
		p.AllowLossyDownscale, _ = f.GetBool("allow-lossy-downscale")
	}
	if f.Changed("max-size") {
		p.MaxInputMB, _ = f.GetInt("max-size")
		if p.MaxInputMB <= 0 {
			return p, fmt.Errorf("invalid --max-size %d (must be positive)", p.MaxInputMB)
		}
	}

	if p.Preset != "" || f.Changed("preset") {
		name := p.Preset
		if f.Changed("preset") {
			name, _ = f.GetString("preset")
		}
		preset, err := filter.LookupPreset(name)
		if err != nil {
			return p, err
		}
		p.Filters = preset.Filters
		p.Preset = ""
	}
	if f.Changed("brightness") {
		p.Filters.Brightness, _ = f.GetInt("brightness")
	}
	if f.Changed("contrast") {
		p.Filters.Contrast, _ = f.GetInt("contrast")
	}
	if f.Changed("saturation") {
		p.Filters.Saturation, _ = f.GetInt("saturation")
	}
	if f.Changed("blur") {
		p.Filters.BlurRadius, _ = f.GetFloat64("blur")
	}
	if f.Changed("sharpen") {
		p.Filters.Sharpen, _ = f.GetInt("sharpen")
	}
	if f.Changed("sepia") {
		p.Filters.Sepia, _ = f.GetInt("sepia")
	}
	if f.Changed("grayscale") {
		p.Filters.Grayscale, _ = f.GetInt("grayscale")
	}
	if f.Changed("vintage") {
		p.Filters.Vintage, _ = f.GetBool("vintage")
	}

	if f.Changed("watermark-text") {
		p.Watermark.Text, _ = f.GetString("watermark-text")
		p.Watermark.Enabled = p.Watermark.Text != ""
	}
	if f.Changed("watermark-position") {
		raw, _ := f.GetString("watermark-position")
		pos, err := watermark.ParsePosition(raw)
		if err != nil {
			return p, err
		}
		p.Watermark.Position = pos
	}
	if f.Changed("watermark-opacity") {
		p.Watermark.Opacity, _ = f.GetInt("watermark-opacity")
	}
	if f.Changed("watermark-size") {
		p.Watermark.FontSizePx, _ = f.GetInt("watermark-size")
	}
	if f.Changed("watermark-color") {
		p.Watermark.Color, _ = f.GetString("watermark-color")
	}
	if f.Changed("watermark-font") {
		p.Watermark.FontFamily, _ = f.GetString("watermark-font")
	}
	if f.Changed("watermark-angle") {
		p.Watermark.AngleDeg, _ = f.GetInt("watermark-angle")
	}

	return p, nil
}
