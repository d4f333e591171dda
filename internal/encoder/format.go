package encoder

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

// Supported output formats.
const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// Formats lists every output format.
var Formats = []Format{JPEG, PNG, WebP}

// ParseFormat accepts jpeg, jpg, png and webp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use jpeg, png or webp)", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// MIMEType returns the media type of encoded output.
func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// Label returns the human-readable name.
func (f Format) Label() string {
	switch f {
	case JPEG:
		return "JPEG"
	case PNG:
		return "PNG"
	case WebP:
		return "WebP"
	default:
		return strings.ToUpper(string(f))
	}
}

// Lossy reports whether the format takes a quality setting.
func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}
