package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ProcessHandler_Binary(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.processHandler(w, multipartRequest(t, "/process", "photo.jpg", testutil.EncodeJPEG(t, testutil.Gradient(t, 64, 48).NRGBA(), 90), nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(w.Body.Len()), w.Header().Get("Content-Length"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=photo.png`)
	assert.Equal(t, "32", w.Header().Get("X-Image-Width"))
	assert.Equal(t, "24", w.Header().Get("X-Image-Height"))
	_, err := strconv.ParseBool(w.Header().Get("X-Image-Downscaled"))
	assert.NoError(t, err)
	assert.NotEmpty(t, w.Header().Get("X-Original-Size"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestServer_ProcessHandler_JSON(t *testing.T) {
	s := newTestServer(t)
	data := samplePNG(t)

	req := multipartRequest(t, "/process", "photo.png", data, map[string]string{
		"settings": `{"format":"jpeg","quality":80,"width":16,"height":16}`,
		"response": "json",
	})
	w := httptest.NewRecorder()
	s.processHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "jpeg", resp.Result.Format)
	assert.Equal(t, "image/jpeg", resp.Result.MIMEType)
	assert.Equal(t, 16, resp.Result.Width)
	assert.Equal(t, 12, resp.Result.Height)
	assert.Equal(t, int64(len(data)), resp.Result.OriginalSize)
	assert.Equal(t, int64(len(resp.Result.Data)), resp.Result.ByteSize)
	assert.Equal(t, []byte{0xFF, 0xD8}, resp.Result.Data[:2])
}

func TestServer_ProcessHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "missing image part",
			req:    multipartRequest(t, "/process", "", nil, map[string]string{"settings": "{}"}),
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "invalid settings",
			req:    multipartRequest(t, "/process", "a.png", samplePNG(t), map[string]string{"settings": `{"quality":500}`}),
			status: http.StatusBadRequest,
			code:   "invalid_settings",
		},
		{
			name:   "corrupt image",
			req:    multipartRequest(t, "/process", "broken.jpg", testutil.CorruptJPEG(), nil),
			status: http.StatusUnprocessableEntity,
			code:   "decode_failure",
		},
		{
			name:   "unsupported extension",
			req:    multipartRequest(t, "/process", "doc.pdf", []byte("%PDF-1.4"), nil),
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.processHandler(w, tt.req)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ProcessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("GET is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.processHandler(w, httptest.NewRequest(http.MethodGet, "/process", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
