package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
)

// OutputName returns "<base>.<ext>" for an input name and output format.
// Path components of name are dropped.
func OutputName(name string, format encoder.Format) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "image"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "image"
	}
	return base + "." + format.Extension()
}

// planOutputs assigns one output path per input inside dir. Colliding names
// get a numeric suffix in input order, so a.png and a.gif become a.jpg and a-1.jpg.
func planOutputs(dir string, names []string, format encoder.Format) []string {
	used := make(map[string]bool, len(names))
	paths := make([]string, len(names))
	for i, name := range names {
		out := OutputName(name, format)
		candidate := out
		for n := 1; used[candidate]; n++ {
			ext := filepath.Ext(out)
			candidate = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(out, ext), n, ext)
		}
		used[candidate] = true
		paths[i] = filepath.Join(dir, candidate)
	}
	return paths
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
