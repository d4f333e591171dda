package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteRun(t *testing.T) {
	s := NewSuite()
	s.Add(Case{Name: "sleep", Megapixels: 2, Run: func(context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	}})
	s.Add(Case{Name: "fails", Run: func(context.Context) error {
		return errors.New("boom")
	}})
	assert.Equal(t, []string{"sleep", "fails"}, s.Names())

	res := s.Run(context.Background(), "sleep", 3)
	require.NoError(t, res.Error)
	assert.Equal(t, 3, res.Iterations)
	assert.GreaterOrEqual(t, res.Duration, 3*time.Millisecond)
	assert.GreaterOrEqual(t, res.Average(), time.Millisecond)
	assert.Positive(t, res.Throughput())
	assert.Contains(t, res.String(), "sleep: 3 iterations")

	res = s.Run(context.Background(), "fails", 3)
	require.EqualError(t, res.Error, "boom")
	assert.Zero(t, res.Iterations)
	assert.Contains(t, res.String(), "ERROR - boom")

	res = s.Run(context.Background(), "missing", 1)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "not found")

	res = s.Run(context.Background(), "sleep", 0)
	require.Error(t, res.Error)
}

func TestSuiteRunAll_Cancelled(t *testing.T) {
	s := NewSuite()
	s.Add(Case{Name: "noop", Run: func(context.Context) error { return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := s.RunAll(ctx, 5)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, raster.ErrCancelled)
	assert.Equal(t, results, s.Results())
}

func TestPipelineSuite(t *testing.T) {
	img := testutil.Gradient(t, 64, 48)
	settings := pipeline.DefaultSettings()
	settings.Width = 32
	settings.Height = 32

	s, err := PipelineSuite(img, settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"resize", "filter", "watermark", "encode-jpeg", "encode-png", "encode-webp", "pipeline"}, s.Names())

	results := s.RunAll(context.Background(), 1)
	for _, r := range results {
		require.NoError(t, r.Error, r.Name)
		assert.Equal(t, 1, r.Iterations, r.Name)
		assert.InDelta(t, 64*48/1e6, r.Megapixels, 1e-9)
	}

	var text bytes.Buffer
	require.NoError(t, WriteText(&text, results))
	assert.Contains(t, text.String(), "encode-webp: 1 iterations")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(results)+1)
	assert.Equal(t, "case", rows[0][0])
	assert.Equal(t, "pipeline", rows[len(rows)-1][0])
}

func TestPipelineSuite_InvalidSettings(t *testing.T) {
	settings := pipeline.DefaultSettings()
	settings.Quality = 101
	_, err := PipelineSuite(testutil.Gradient(t, 8, 8), settings)
	require.Error(t, err)
}
