package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server that emits small PNGs by default.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	defaults := pipeline.DefaultSettings()
	defaults.OutputFormat = "png"
	defaults.Width = 32
	defaults.Height = 32
	defaults.AllowLossyDownscale = false

	s, err := NewServer(Config{
		CORSOrigin:    "*",
		MaxUploadMB:   5,
		TimeoutSec:    10,
		MaxBatchItems: 4,
		BatchWorkers:  2,
		Defaults:      defaults,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.Gradient(t, 64, 48).NRGBA())
}

// multipartRequest builds a POST with an "image" part and extra form fields.
func multipartRequest(t *testing.T, target, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
