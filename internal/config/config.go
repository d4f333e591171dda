package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/batch"
	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// validLogLevels lists the accepted log_level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	settings := pipeline.DefaultSettings()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Processing: ProcessingConfig{
			Format:              string(settings.OutputFormat),
			Quality:             settings.Quality,
			Width:               settings.Width,
			Height:              settings.Height,
			MaintainAspectRatio: settings.MaintainAspectRatio,
			AllowLossyDownscale: settings.AllowLossyDownscale,
			MaxInputMB:          int(decoder.DefaultMaxBytes >> 20),
			Watermark:           watermark.DefaultConfig(),
		},
		Batch: BatchConfig{
			Workers: 1,
			Report:  batch.ReportText,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			MaxBatchItems:   50,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := c.Processing.Settings(); err != nil {
		return fmt.Errorf("invalid processing settings: %w", err)
	}
	if c.Processing.MaxInputMB <= 0 {
		return fmt.Errorf("invalid max input size: %d (must be positive)", c.Processing.MaxInputMB)
	}

	validReports := []string{batch.ReportText, batch.ReportJSON, batch.ReportCSV}
	if c.Batch.Report != "" && !slices.Contains(validReports, c.Batch.Report) {
		return fmt.Errorf("invalid report format: %s (must be one of: %s)", c.Batch.Report, strings.Join(validReports, ", "))
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxBatchItems <= 0 {
		return fmt.Errorf("invalid max batch items: %d (must be positive)", c.Server.MaxBatchItems)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}

	return nil
}

// Builder returns a pipeline builder preloaded with the processing defaults.
// A preset, when set, replaces the configured filters.
func (p ProcessingConfig) Builder() *pipeline.Builder {
	b := pipeline.NewBuilder().
		WithFormat(p.Format).
		WithQuality(p.Quality).
		WithDimensions(p.Width, p.Height).
		WithAspectRatio(p.MaintainAspectRatio).
		WithLossyDownscale(p.AllowLossyDownscale).
		WithFilters(p.Filters)
	if p.Preset != "" {
		b = b.WithPreset(p.Preset)
	}
	if p.Watermark.Enabled {
		wm := p.Watermark
		b = b.WithWatermark(&wm)
	}
	return b
}

// Settings converts the processing defaults to validated pipeline settings.
func (p ProcessingConfig) Settings() (pipeline.Settings, error) {
	b := p.Builder()
	if err := b.Validate(); err != nil {
		return pipeline.Settings{}, err
	}
	return b.Settings(), nil
}

// MaxInputBytes returns the decode size limit in bytes.
func (p ProcessingConfig) MaxInputBytes() int64 {
	if p.MaxInputMB <= 0 {
		return decoder.DefaultMaxBytes
	}
	return int64(p.MaxInputMB) << 20
}

// FilterPresets exposes the available preset names for help output.
func FilterPresets() []string {
	return filter.PresetNames()
}
