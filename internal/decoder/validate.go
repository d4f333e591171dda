package decoder

import "github.com/MeKo-Tech/imgforge/internal/raster"

// Validation is the result of the pre-decode gate.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`
	Format string `json:"format,omitempty"`
}

// ValidateInput checks size and type without touching pixel data.
// A non-positive maxBytes selects DefaultMaxBytes.
func ValidateInput(data []byte, name string, maxBytes int64) Validation {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	label, err := checkInput(data, name, maxBytes)
	if err != nil {
		return Validation{Valid: false, Reason: err.Error(), Code: raster.KindOf(err)}
	}
	return Validation{Valid: true, Format: label}
}
