package raster

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every stage failure wraps exactly one of them.
var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrFilterApplication = errors.New("filter application failure")
	ErrEncodeFailure     = errors.New("encode failure")
	ErrAllocation        = errors.New("allocation failure")
	ErrCancelled         = errors.New("cancelled")
)

var kinds = []error{
	ErrFileTooLarge, ErrUnsupportedFormat, ErrDecodeFailure,
	ErrFilterApplication, ErrEncodeFailure, ErrAllocation, ErrCancelled,
}

var kindCodes = map[error]string{
	ErrFileTooLarge:      "file_too_large",
	ErrUnsupportedFormat: "unsupported_format",
	ErrDecodeFailure:     "decode_failure",
	ErrFilterApplication: "filter_application_failure",
	ErrEncodeFailure:     "encode_failure",
	ErrAllocation:        "allocation_failure",
	ErrCancelled:         "cancelled",
}

// ProcessingError represents a failure in one operation of the pipeline.
type ProcessingError struct {
	Op   string
	Kind error
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *ProcessingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap builds a ProcessingError, returning nil for a nil cause.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if errors.As(err, &pe) && pe.Kind != nil {
		// Already classified further down; keep the original kind.
		return err
	}
	return &ProcessingError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the stable code for the error's kind, or "internal_error".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return kindCodes[ErrCancelled]
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return kindCodes[k]
		}
	}
	return "internal_error"
}
