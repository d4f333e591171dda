package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/common"
	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/filter"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/version"
	"github.com/MeKo-Tech/imgforge/internal/watermark"
)

var startTime = time.Now()

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Memory:  readMemoryStats(),
	}
	writeJSON(w, http.StatusOK, response)
}

func readMemoryStats() MemoryStats {
	m := common.ReadMemoryStats()
	return MemoryStats{
		AllocMB:      common.ToMB(m.AllocBytes),
		TotalAllocMB: common.ToMB(m.TotalAllocBytes),
		SysMB:        common.ToMB(m.SysBytes),
		NumGC:        m.NumGC,
		Goroutines:   m.Goroutines,
	}
}

// formatsHandler lists accepted inputs, output formats and presets.
func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	outputs := make([]OutputFormatInfo, len(encoder.Formats))
	for i, f := range encoder.Formats {
		outputs[i] = OutputFormatInfo{
			Name:      string(f),
			Label:     f.Label(),
			MIMEType:  f.MIMEType(),
			Extension: f.Extension(),
			Lossy:     f.Lossy(),
		}
	}
	var presets []PresetInfo
	for _, p := range filter.Presets() {
		presets = append(presets, PresetInfo{Name: p.Name, Description: p.Description})
	}

	writeJSON(w, http.StatusOK, FormatsResponse{
		Inputs: []string{
			decoder.FormatJPEG, decoder.FormatPNG, decoder.FormatWebP, decoder.FormatGIF,
			decoder.FormatBMP, decoder.FormatTIFF, decoder.FormatRAW,
		},
		Extensions: decoder.SupportedExtensions,
		Outputs:    outputs,
		Presets:    presets,
		Positions:  watermark.Positions,
		Fonts:      watermark.FontFamilies,
		Defaults:   s.defaults,
	})
}

// validateHandler runs the pre-decode gate on an uploaded file.
func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	v := decoder.ValidateInput(upload.data, upload.name, s.maxInputBytes)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: v.Valid, Reason: v.Reason, Code: v.Code, Format: v.Format})
}

// upload is one multipart file.
type upload struct {
	name string
	data []byte
}

// readUpload parses the multipart form and reads the "image" part. On failure
// it writes the error response and returns false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeErrorResponse(w, "File too large", "file_too_large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", "invalid_request", http.StatusBadRequest)
		}
		return upload{}, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", "invalid_request", http.StatusBadRequest)
		return upload{}, false
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", "internal_error", http.StatusInternalServerError)
		return upload{}, false
	}
	return upload{name: header.Filename, data: data}, true
}

// parseSettings overlays a JSON settings document onto the server defaults.
// An empty document returns the defaults.
func (s *Server) parseSettings(raw []byte) (pipeline.Settings, error) {
	settings := s.defaults.Clone()
	if len(raw) == 0 {
		return settings, nil
	}

	hadWatermark := settings.Watermark != nil
	if !hadWatermark {
		wm := watermark.DefaultConfig()
		settings.Watermark = &wm
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return pipeline.Settings{}, fmt.Errorf("invalid settings JSON: %w", err)
	}
	if settings.Watermark != nil && !settings.Watermark.Enabled {
		settings.Watermark = nil
	}

	f, err := encoder.ParseFormat(string(settings.OutputFormat))
	if err != nil {
		return pipeline.Settings{}, err
	}
	settings.OutputFormat = f

	if err := settings.Validate(); err != nil {
		return pipeline.Settings{}, err
	}
	return settings, nil
}

// statusForError maps a processing error kind to an HTTP status.
func statusForError(err error) int {
	switch raster.KindOf(err) {
	case "file_too_large":
		return http.StatusRequestEntityTooLarge
	case "unsupported_format":
		return http.StatusUnsupportedMediaType
	case "decode_failure", "allocation_failure":
		return http.StatusUnprocessableEntity
	case "cancelled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toImageResult(res *pipeline.ProcessedImage, originalSize int64, withData bool) *ImageResult {
	out := &ImageResult{
		Name:         res.Name,
		Format:       string(res.Format),
		MIMEType:     res.MIMEType(),
		Width:        res.Width,
		Height:       res.Height,
		ByteSize:     res.ByteSize,
		OriginalSize: originalSize,
		Reduction:    res.Reduction(originalSize),
		Downscaled:   res.Downscaled,
		Timings:      res.Timings,
	}
	if withData {
		out.Data = res.Bytes
	}
	return out
}

// observeResult records per-image metrics.
func observeResult(kind string, res *pipeline.ProcessedImage) {
	imagesProcessedTotal.WithLabelValues(kind, "success").Inc()
	processingDuration.WithLabelValues(kind).Observe(time.Duration(res.Timings.TotalNs).Seconds())
	stageDuration.WithLabelValues("resize").Observe(time.Duration(res.Timings.ResizeNs).Seconds())
	stageDuration.WithLabelValues("filter").Observe(time.Duration(res.Timings.FilterNs).Seconds())
	stageDuration.WithLabelValues("watermark").Observe(time.Duration(res.Timings.WatermarkNs).Seconds())
	stageDuration.WithLabelValues("encode").Observe(time.Duration(res.Timings.EncodeNs).Seconds())
	outputSizeBytes.WithLabelValues(string(res.Format)).Observe(float64(res.ByteSize))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, ProcessResponse{Success: false, Error: message, Code: code})
}
