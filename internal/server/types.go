package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	processor      *pipeline.Processor
	defaults       pipeline.Settings
	corsOrigin     string
	maxUploadBytes int64
	maxInputBytes  int64
	timeout        time.Duration
	maxBatchItems  int
	batchWorkers   int
	rateLimiter    *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxUploadMB   int64
	TimeoutSec    int
	MaxBatchItems int
	BatchWorkers  int
	// MaxInputBytes is the per-image decode limit; 0 uses the decoder default.
	MaxInputBytes int64
	// Defaults are the processing settings requests start from.
	Defaults pipeline.Settings
	// Fonts overrides the watermark font provider.
	Fonts watermark.FontProvider
	// RateLimit enables per-client limits when non-nil.
	RateLimit *RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version,omitempty"`
	Time    string      `json:"time"`
	Uptime  string      `json:"uptime"`
	Memory  MemoryStats `json:"memory"`
}

// MemoryStats is a subset of runtime.MemStats in MiB.
type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	NumGC        uint32  `json:"num_gc"`
	Goroutines   int     `json:"goroutines"`
}

type FormatsResponse struct {
	Inputs     []string             `json:"inputs"`
	Extensions []string             `json:"extensions"`
	Outputs    []OutputFormatInfo   `json:"outputs"`
	Presets    []PresetInfo         `json:"presets"`
	Positions  []watermark.Position `json:"watermark_positions"`
	Fonts      []string             `json:"fonts"`
	Defaults   pipeline.Settings    `json:"defaults"`
}

type OutputFormatInfo struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
	Lossy     bool   `json:"lossy"`
}

type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`
	Format string `json:"format,omitempty"`
}

// ImageResult describes one processed image. Data is base64 in JSON.
type ImageResult struct {
	Name         string                `json:"name,omitempty"`
	Format       string                `json:"format"`
	MIMEType     string                `json:"mime_type"`
	Width        int                   `json:"width"`
	Height       int                   `json:"height"`
	ByteSize     int64                 `json:"byte_size"`
	OriginalSize int64                 `json:"original_size,omitempty"`
	Reduction    int                   `json:"reduction_percent"`
	Downscaled   bool                  `json:"downscaled"`
	Timings      pipeline.StageTimings `json:"timings"`
	Data         []byte                `json:"data,omitempty"`
}

type ProcessResponse struct {
	Success bool         `json:"success"`
	Result  *ImageResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"code,omitempty"`
}

// NewServer creates a new image processing server.
func NewServer(config Config) (*Server, error) {
	defaults := config.Defaults
	if defaults.OutputFormat == "" {
		defaults = pipeline.DefaultSettings()
	}

	b := pipeline.FromSettings(defaults).WithLogger(slog.Default())
	if config.Fonts != nil {
		b = b.WithFontProvider(config.Fonts)
	}
	proc, settings, err := b.Build()
	if err != nil {
		return nil, err
	}

	s := &Server{
		processor:      proc,
		defaults:       settings,
		corsOrigin:     config.CORSOrigin,
		maxUploadBytes: max(config.MaxUploadMB, 1) << 20,
		maxInputBytes:  config.MaxInputBytes,
		timeout:        time.Duration(max(config.TimeoutSec, 1)) * time.Second,
		maxBatchItems:  max(config.MaxBatchItems, 1),
		batchWorkers:   max(config.BatchWorkers, 1),
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxInputBytes <= 0 {
		s.maxInputBytes = decoder.DefaultMaxBytes
	}
	if rl := config.RateLimit; rl != nil {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/formats", s.corsMiddleware(s.formatsHandler))
	mux.HandleFunc("/validate", s.corsMiddleware(s.rateLimitMiddleware(s.validateHandler)))
	mux.HandleFunc("/process", s.corsMiddleware(s.rateLimitMiddleware(s.processHandler)))
	mux.HandleFunc("/batch", s.corsMiddleware(s.rateLimitMiddleware(s.batchHandler)))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.webSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
