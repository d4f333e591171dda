package watermark

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/cases"
)

// FontProvider supplies faces for measuring and drawing text.
// Returned faces are owned by the caller and must be closed.
type FontProvider interface {
	Face(family string, sizePx int) (font.Face, error)
}

// FontFamilies lists the family names the default provider recognises.
var FontFamilies = []string{
	"Arial", "Helvetica", "Times New Roman", "Georgia", "Verdana",
	"Trebuchet MS", "Impact", "Courier New", "Comic Sans MS", "Palatino",
}

// familyFonts maps case-folded family names to embedded Go font data.
var familyFonts = map[string][]byte{
	"arial":           goregular.TTF,
	"helvetica":       goregular.TTF,
	"verdana":         goregular.TTF,
	"trebuchet ms":    goregular.TTF,
	"sans-serif":      goregular.TTF,
	"times new roman": gomedium.TTF,
	"georgia":         gomedium.TTF,
	"palatino":        gomedium.TTF,
	"serif":           gomedium.TTF,
	"impact":          gobold.TTF,
	"courier new":     gomono.TTF,
	"monospace":       gomono.TTF,
	"comic sans ms":   goitalic.TTF,
}

// GoFontProvider maps family names onto the Go fonts. Unknown families use Go Regular.
type GoFontProvider struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
}

// NewGoFontProvider creates a provider with an empty parse cache.
func NewGoFontProvider() *GoFontProvider {
	return &GoFontProvider{fonts: make(map[string]*opentype.Font)}
}

var defaultProvider = NewGoFontProvider()

// DefaultFontProvider returns the shared Go font provider.
func DefaultFontProvider() FontProvider { return defaultProvider }

// Face returns a new face of the given pixel size.
func (p *GoFontProvider) Face(family string, sizePx int) (font.Face, error) {
	f, err := p.font(family)
	if err != nil {
		return nil, err
	}
	// At 72 DPI one point is one pixel.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(sizePx),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s face at %dpx: %w", family, sizePx, err)
	}
	return face, nil
}

func (p *GoFontProvider) font(family string) (*opentype.Font, error) {
	key := cases.Fold().String(strings.TrimSpace(family))
	data, ok := familyFonts[key]
	if !ok {
		key, data = "", goregular.TTF
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.fonts[key]; ok {
		return f, nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font for %q: %w", family, err)
	}
	p.fonts[key] = f
	return f, nil
}

// MeasureText returns the advance width of text in whole pixels.
func MeasureText(face font.Face, text string) int {
	return font.MeasureString(face, text).Ceil()
}
