package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessCommand(t *testing.T) {
	dir := isolate(t)
	writePNG(t, dir, "photo.png", 64, 48)

	out, _, err := executeCommand(t, "process", "photo.png", "--format", "webp", "--width", "32", "-o", "out/small.webp")
	require.NoError(t, err)
	assert.Contains(t, out, "photo.png -> out/small.webp (WebP 32x24")

	data, err := os.ReadFile(filepath.Join(dir, "out", "small.webp"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
}

func TestProcessCommandDefaultOutput(t *testing.T) {
	dir := isolate(t)
	writePNG(t, dir, "photo.png", 40, 40)

	_, _, err := executeCommand(t, "process", "photo.png", "--preset", "bw", "--watermark-text", "hi")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])
}

func TestProcessCommandErrors(t *testing.T) {
	dir := isolate(t)
	writePNG(t, dir, "photo.png", 16, 16)
	testutil.WriteFile(t, dir, "broken.jpg", testutil.CorruptJPEG())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing argument", args: []string{"process"}, want: "accepts 1 arg"},
		{name: "overwrite input", args: []string{"process", "photo.png", "--format", "png"}, want: "overwrite the input"},
		{name: "unknown preset", args: []string{"process", "photo.png", "--preset", "neon"}, want: "unknown preset"},
		{name: "bad position", args: []string{"process", "photo.png", "--watermark-position", "middle"}, want: "unknown watermark position"},
		{name: "bad quality", args: []string{"process", "photo.png", "--quality", "300"}, want: "quality"},
		{name: "bad format", args: []string{"process", "photo.png", "--format", "gif"}, want: "unsupported output format"},
		{name: "corrupt input", args: []string{"process", "broken.jpg", "-o", "x.jpg"}, want: "failed to decode"},
		{name: "missing file", args: []string{"process", "nope.png", "-o", "x.jpg"}, want: "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
