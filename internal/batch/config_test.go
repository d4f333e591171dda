package batch

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFiles_WritesOutputs(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	img := testutil.Gradient(t, 40, 20).NRGBA()
	testutil.WriteFile(t, in, "a.png", testutil.EncodePNG(t, img))
	testutil.WriteFile(t, in, "b.gif", testutil.EncodeGIF(t, img))
	testutil.WriteFile(t, in, "broken.jpg", testutil.CorruptJPEG())
	testutil.WriteFile(t, in, "readme.txt", []byte("not an image"))

	var progress bytes.Buffer
	res, err := RunFiles(context.Background(), []string{in}, smallSettings(), &Config{
		Workers:        2,
		OutputDir:      out,
		ShowProgress:   true,
		ProgressWriter: &progress,
	})
	require.NoError(t, err)

	require.Len(t, res.Files, 3)
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, filepath.Join(in, "broken.jpg"), res.Errors[0].Name)
	assert.Equal(t, 2, res.WorkerCount)
	assert.NotEmpty(t, progress.String())

	for i, r := range res.Results {
		if r == nil {
			assert.False(t, testutil.FileExists(res.Outputs[i]))
			continue
		}
		data, err := os.ReadFile(res.Outputs[i])
		require.NoError(t, err)
		assert.Equal(t, r.Bytes, data)

		_, meta, err := decoder.Decode(data, res.Outputs[i], decoder.Options{})
		require.NoError(t, err)
		assert.Equal(t, decoder.FormatPNG, meta.Format)
	}
	assert.True(t, testutil.FileExists(filepath.Join(out, "a.png")))
	assert.True(t, testutil.FileExists(filepath.Join(out, "b.png")))
}

func TestRunFiles_UnreadableFileFailsOnlyItsItem(t *testing.T) {
	in := t.TempDir()
	img := testutil.Gradient(t, 20, 10).NRGBA()
	testutil.WriteFile(t, in, "a.png", testutil.EncodePNG(t, img))
	testutil.WriteFile(t, in, "c.png", testutil.EncodePNG(t, img))
	if err := os.Symlink(filepath.Join(in, "missing.png"), filepath.Join(in, "b.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res, err := RunFiles(context.Background(), []string{in}, smallSettings(), &Config{Workers: 2})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.NotNil(t, res.Results[0])
	assert.Nil(t, res.Results[1])
	assert.NotNil(t, res.Results[2])
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "decode_failure", res.Errors[0].Code)
}

func TestRunFiles_OversizedFileFailsOnlyItsItem(t *testing.T) {
	in := t.TempDir()
	small := testutil.EncodePNG(t, testutil.Gradient(t, 8, 8).NRGBA())
	large := testutil.EncodePNG(t, testutil.Noise(t, 64, 64, 7).NRGBA())
	require.Greater(t, len(large), len(small))
	testutil.WriteFile(t, in, "a.png", small)
	testutil.WriteFile(t, in, "b.png", large)
	testutil.WriteFile(t, in, "c.png", small)

	res, err := RunFiles(context.Background(), []string{in}, smallSettings(), &Config{
		Workers:       1,
		MaxInputBytes: int64(len(small)),
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.NotNil(t, res.Results[0])
	assert.Nil(t, res.Results[1])
	assert.NotNil(t, res.Results[2])
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "file_too_large", res.Errors[0].Code)
	assert.Equal(t, int64(len(large)), res.InputSizes[1])
}

func TestRunFiles_LogsProgress(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	in := t.TempDir()
	testutil.WriteFile(t, in, "a.png", testutil.EncodePNG(t, testutil.Gradient(t, 8, 8).NRGBA()))
	testutil.WriteFile(t, in, "b.jpg", testutil.CorruptJPEG())

	var console bytes.Buffer
	_, err := RunFiles(context.Background(), []string{in}, smallSettings(), &Config{
		Workers:        1,
		ShowProgress:   true,
		ProgressWriter: &console,
	})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "batch: Starting processing")
	assert.Contains(t, out, "batch: Item failed")
	assert.Contains(t, out, "batch: Processing completed")
	assert.Contains(t, console.String(), "Completed 1, failed 1")
}

func TestRunFiles_NoImages(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "notes.txt", []byte("x"))

	_, err := RunFiles(context.Background(), []string{dir}, smallSettings(), &Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")
}

func TestResult_SaveResults(t *testing.T) {
	res := sampleResult()
	file := filepath.Join(t.TempDir(), "report.json")

	var msg bytes.Buffer
	require.NoError(t, res.SaveResults(&msg, ReportJSON, file, false))
	assert.Contains(t, msg.String(), "Results written to")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id": "job-1"`)

	var stdout bytes.Buffer
	require.NoError(t, res.SaveResults(&stdout, ReportCSV, "", false))
	assert.Contains(t, stdout.String(), "file,output")
}
