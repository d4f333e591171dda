package pipeline

import (
	"math"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
)

// StageTimings records how long each stage of one item took.
type StageTimings struct {
	ResizeNs    int64 `json:"resize_ns"`
	FilterNs    int64 `json:"filter_ns"`
	WatermarkNs int64 `json:"watermark_ns"`
	EncodeNs    int64 `json:"encode_ns"`
	TotalNs     int64 `json:"total_ns"`
}

// ProcessedImage is the encoded output of one item.
type ProcessedImage struct {
	Name       string         `json:"name,omitempty"`
	Bytes      []byte         `json:"-"`
	ByteSize   int64          `json:"byte_size"`
	Format     encoder.Format `json:"format"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Downscaled bool           `json:"downscaled"`
	Timings    StageTimings   `json:"timings"`
}

// MIMEType returns the media type of Bytes.
func (p *ProcessedImage) MIMEType() string {
	return p.Format.MIMEType()
}

// Reduction returns the whole-percent size saving against originalSize.
// Negative values mean the output grew.
func (p *ProcessedImage) Reduction(originalSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(p.ByteSize)/float64(originalSize)) * 100))
}
