package server

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
)

// processHandler decodes an uploaded image, runs the pipeline and returns the
// encoded bytes, or a JSON document with base64 data when response=json.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	up, ok := s.readUpload(w, r)
	if !ok {
		imagesProcessedTotal.WithLabelValues("process", "error").Inc()
		return
	}

	settings, err := s.parseSettings([]byte(r.FormValue("settings")))
	if err != nil {
		imagesProcessedTotal.WithLabelValues("process", "error").Inc()
		s.writeErrorResponse(w, err.Error(), "invalid_settings", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.processUpload(ctx, up, settings)
	if err != nil {
		imagesProcessedTotal.WithLabelValues("process", "error").Inc()
		s.writeErrorResponse(w, err.Error(), raster.KindOf(err), statusForError(err))
		return
	}
	observeResult("process", res)

	format := r.FormValue("response")
	if format == "" {
		format = r.URL.Query().Get("response")
	}
	if format == "json" {
		writeJSON(w, http.StatusOK, ProcessResponse{
			Success: true,
			Result:  toImageResult(res, int64(len(up.data)), true),
		})
		return
	}

	w.Header().Set("Content-Type", res.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": outputFilename(up.name, res)}))
	w.Header().Set("X-Image-Width", strconv.Itoa(res.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(res.Height))
	w.Header().Set("X-Image-Downscaled", strconv.FormatBool(res.Downscaled))
	w.Header().Set("X-Original-Size", strconv.Itoa(len(up.data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Bytes)
}

// processUpload decodes and processes one uploaded image.
func (s *Server) processUpload(ctx context.Context, up upload, settings pipeline.Settings) (*pipeline.ProcessedImage, error) {
	img, _, err := decoder.Decode(up.data, up.name, decoder.Options{MaxBytes: s.maxInputBytes})
	if err != nil {
		return nil, err
	}
	return s.processor.Process(ctx, pipeline.Item{
		Name:      up.name,
		Image:     img,
		SizeBytes: int64(len(up.data)),
	}, settings, nil)
}
