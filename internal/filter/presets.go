package filter

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a named filter combination.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Filters     Set    `json:"filters"`
}

var presets = map[string]Preset{
	"none": {
		Name:        "none",
		Description: "No adjustments",
	},
	"vivid": {
		Name:        "vivid",
		Description: "Brighter with more contrast and colour",
		Filters:     Set{Brightness: 20, Contrast: 15, Saturation: 10},
	},
	"bw": {
		Name:        "bw",
		Description: "Black and white with a contrast boost",
		Filters:     Set{Grayscale: 100, Contrast: 20},
	},
	"vintage": {
		Name:        "vintage",
		Description: "Sepia toned with a warm tint",
		Filters:     Set{Sepia: 80, Brightness: 10, Vintage: true},
	},
}

// LookupPreset returns the preset with the given name (case-insensitive).
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns all presets sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, name := range PresetNames() {
		out = append(out, presets[name])
	}
	return out
}
