package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MeKo-Tech/imgforge/internal/batch"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
)

// BatchRequest is the JSON body of POST /batch. Image data is base64.
type BatchRequest struct {
	Settings json.RawMessage     `json:"settings,omitempty"`
	Images   []BatchImageRequest `json:"images"`
}

// BatchImageRequest represents a single image in a batch request.
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchResponse reports a finished batch job.
type BatchResponse struct {
	Success bool                   `json:"success"`
	JobID   string                 `json:"job_id,omitempty"`
	Status  batch.Status           `json:"status,omitempty"`
	Results []*ImageResult         `json:"results,omitempty"`
	Errors  []batch.ItemError      `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// batchHandler processes a JSON batch and returns every result inline.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), "invalid_request", http.StatusBadRequest)
		return
	}

	inputs, settings, err := s.prepareBatch(req)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	job := batch.ProcessBatch(ctx, inputs, settings, s.batchOptions("batch", nil))
	writeJSON(w, http.StatusOK, buildBatchResponse(job.Snapshot(), inputs))
}

// prepareBatch validates a batch request and converts it to orchestrator inputs.
func (s *Server) prepareBatch(req BatchRequest) ([]batch.Input, pipeline.Settings, error) {
	if len(req.Images) == 0 {
		return nil, pipeline.Settings{}, fmt.Errorf("no images provided in batch request")
	}
	if len(req.Images) > s.maxBatchItems {
		return nil, pipeline.Settings{}, fmt.Errorf("batch size too large (maximum %d items)", s.maxBatchItems)
	}

	settings, err := s.parseSettings(req.Settings)
	if err != nil {
		return nil, pipeline.Settings{}, err
	}

	inputs := make([]batch.Input, len(req.Images))
	for i, img := range req.Images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image-%d", i)
		}
		inputs[i] = batch.Input{Name: name, Data: img.Data}
		uploadSizeBytes.Observe(float64(len(img.Data)))
	}
	return inputs, settings, nil
}

// batchOptions wires orchestrator callbacks to metrics and an optional item hook.
func (s *Server) batchOptions(kind string, onItem func(int, *pipeline.ProcessedImage, error)) batch.Options {
	return batch.Options{
		Workers:       s.batchWorkers,
		MaxInputBytes: s.maxInputBytes,
		Processor:     s.processor,
		OnItemDone: func(index int, res *pipeline.ProcessedImage, err error) {
			if err != nil {
				imagesProcessedTotal.WithLabelValues(kind, "error").Inc()
				batchItemsTotal.WithLabelValues("error").Inc()
			} else {
				observeResult(kind, res)
				batchItemsTotal.WithLabelValues("success").Inc()
			}
			if onItem != nil {
				onItem(index, res, err)
			}
		},
	}
}

func buildBatchResponse(snap batch.Snapshot, inputs []batch.Input) BatchResponse {
	results := make([]*ImageResult, len(snap.Results))
	for i, res := range snap.Results {
		if res != nil {
			results[i] = toImageResult(res, inputs[i].SizeBytes(), true)
		}
	}

	failed := len(snap.Errors)
	summary := BatchProcessingSummary{
		TotalItems:    snap.Total,
		Successful:    snap.Total - failed,
		Failed:        failed,
		TotalDuration: snap.Duration().Seconds(),
	}
	if summary.TotalItems > 0 {
		summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)
	}

	return BatchResponse{
		Success: snap.Status == batch.StatusCompleted,
		JobID:   snap.ID,
		Status:  snap.Status,
		Results: results,
		Errors:  snap.Errors,
		Summary: summary,
	}
}

// outputFilename names a processed upload for Content-Disposition.
func outputFilename(name string, res *pipeline.ProcessedImage) string {
	if name == "" {
		name = "image"
	}
	return batch.OutputName(name, res.Format)
}
