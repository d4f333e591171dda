// Package batch drives the single-item pipeline over many inputs with
// partial-failure semantics and progress reporting.
package batch

import (
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a Job.
type Status string

// Job states. Completed and Failed are terminal.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Input is one batch item: encoded bytes, an already decoded raster, or a
// file Path read when the item starts.
type Input struct {
	Name  string
	Data  []byte
	Image *raster.Image
	Path  string
}

// SizeBytes returns the encoded size held in Data, or 0 for other inputs.
func (in Input) SizeBytes() int64 {
	return int64(len(in.Data))
}

// ItemError records why one item failed.
type ItemError struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job tracks one batch run. Fields are written only by the orchestrator;
// use Snapshot to read them while the job runs.
type Job struct {
	ID         string
	Inputs     []Input
	Settings   pipeline.Settings
	Status     Status
	Progress   float64
	Results    []*pipeline.ProcessedImage
	Errors     []ItemError
	StartedAt  time.Time
	FinishedAt time.Time

	mu sync.RWMutex
}

// NewJob creates a pending job with one result slot per input.
func NewJob(inputs []Input, settings pipeline.Settings) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Inputs:   inputs,
		Settings: settings.Clone(),
		Status:   StatusPending,
		Results:  make([]*pipeline.ProcessedImage, len(inputs)),
	}
}

// Snapshot is a consistent copy of a Job's state.
type Snapshot struct {
	ID         string                     `json:"id"`
	Status     Status                     `json:"status"`
	Progress   float64                    `json:"progress"`
	Total      int                        `json:"total"`
	Names      []string                   `json:"names"`
	Results    []*pipeline.ProcessedImage `json:"results"`
	Errors     []ItemError                `json:"errors"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at,omitempty"`
}

// Snapshot returns a copy safe to use while the job is running.
// Result pointers are shared; a filled slot is never written again.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	names := make([]string, len(j.Inputs))
	for i, in := range j.Inputs {
		names[i] = in.Name
	}
	return Snapshot{
		ID:         j.ID,
		Status:     j.Status,
		Progress:   j.Progress,
		Total:      len(j.Inputs),
		Names:      names,
		Results:    slices.Clone(j.Results),
		Errors:     slices.Clone(j.Errors),
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}

// Succeeded counts filled result slots.
func (s Snapshot) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r != nil {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run so far.
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = p
}

func (j *Job) fill(index int, res *pipeline.ProcessedImage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Results[index] = res
}

func (j *Job) fail(index int, err error) ItemError {
	e := ItemError{
		Index:   index,
		Name:    j.Inputs[index].Name,
		Code:    raster.KindOf(err),
		Message: err.Error(),
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Errors = append(j.Errors, e)
	return e
}
