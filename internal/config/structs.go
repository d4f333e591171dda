//nolint:lll
package config

import (
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

// Config represents the complete configuration for imgforge.
// It includes settings for all commands (process, batch, validate, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Image processing defaults
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing" json:"processing"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ProcessingConfig contains the default processing settings.
type ProcessingConfig struct {
	Format              string           `mapstructure:"format" yaml:"format" json:"format"`
	Quality             int              `mapstructure:"quality" yaml:"quality" json:"quality"`
	Width               int              `mapstructure:"width" yaml:"width" json:"width"`
	Height              int              `mapstructure:"height" yaml:"height" json:"height"`
	MaintainAspectRatio bool             `mapstructure:"maintain_aspect_ratio" yaml:"maintain_aspect_ratio" json:"maintain_aspect_ratio"`
	AllowLossyDownscale bool             `mapstructure:"allow_lossy_downscale" yaml:"allow_lossy_downscale" json:"allow_lossy_downscale"`
	MaxInputMB          int              `mapstructure:"max_input_mb" yaml:"max_input_mb" json:"max_input_mb"`
	Preset              string           `mapstructure:"preset" yaml:"preset" json:"preset"`
	Filters             filter.Set       `mapstructure:"filters" yaml:"filters" json:"filters"`
	Watermark           watermark.Config `mapstructure:"watermark" yaml:"watermark" json:"watermark"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string   `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	IncludePatterns []string `mapstructure:"include" yaml:"include,omitempty" json:"include"`
	ExcludePatterns []string `mapstructure:"exclude" yaml:"exclude,omitempty" json:"exclude"`
	Report          string   `mapstructure:"report" yaml:"report" json:"report"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBatchItems   int             `mapstructure:"max_batch_items" yaml:"max_batch_items" json:"max_batch_items"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
