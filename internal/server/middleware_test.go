package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		expectedStatus int
		shouldCallNext bool
	}{
		{name: "GET request", corsOrigin: "*", method: http.MethodGet, expectedStatus: http.StatusCreated, shouldCallNext: true},
		{name: "POST with specific origin", corsOrigin: "https://example.com", method: http.MethodPost, expectedStatus: http.StatusCreated, shouldCallNext: true},
		{name: "OPTIONS preflight", corsOrigin: "*", method: http.MethodOptions, expectedStatus: http.StatusOK, shouldCallNext: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusCreated)
			})

			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(tt.method, "/process", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.shouldCallNext, nextCalled)
			assert.Equal(t, tt.corsOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
			assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Image-Width")
		})
	}
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	t.Run("disabled limiter passes through", func(t *testing.T) {
		s := &Server{}
		called := 0
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) { called++ })
		for range 5 {
			handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/process", nil))
		}
		assert.Equal(t, 5, called)
	})

	t.Run("minute limit returns 429", func(t *testing.T) {
		s := &Server{rateLimiter: NewRateLimiter(2, 0, 0, 0)}
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		var last *httptest.ResponseRecorder
		for range 3 {
			last = httptest.NewRecorder()
			handler(last, httptest.NewRequest(http.MethodPost, "/process", nil))
		}
		require.Equal(t, http.StatusTooManyRequests, last.Code)
		assert.Equal(t, "minute", last.Header().Get("X-RateLimit-Type"))
		assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, last.Header().Get("Retry-After"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
		assert.Equal(t, "rate_limit_exceeded", body["error"])
	})

	t.Run("data quota returns 429", func(t *testing.T) {
		s := &Server{rateLimiter: NewRateLimiter(0, 0, 0, 10)}
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(strings.Repeat("x", 20))))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "data", w.Header().Get("X-Quota-Type"))
		assert.Equal(t, "10", w.Header().Get("X-Quota-Limit"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "quota_exceeded", body["error"])
	})

	t.Run("clients are tracked separately", func(t *testing.T) {
		s := &Server{rateLimiter: NewRateLimiter(1, 0, 0, 0)}
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {})

		for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
			req := httptest.NewRequest(http.MethodPost, "/process", nil)
			req.Header.Set("X-Real-IP", ip)
			w := httptest.NewRecorder()
			handler(w, req)
			assert.Equal(t, http.StatusOK, w.Code, ip)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remoteAddr: "10.0.0.2:1234", want: "203.0.113.5"},
		{name: "single forwarded", headers: map[string]string{"X-Forwarded-For": " 203.0.113.7 "}, remoteAddr: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.1"}, remoteAddr: "10.0.0.2:1234", want: "198.51.100.1"},
		{name: "remote addr", remoteAddr: "192.0.2.10:5555", want: "192.0.2.10"},
		{name: "remote addr without port", remoteAddr: "192.0.2.11", want: "192.0.2.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
