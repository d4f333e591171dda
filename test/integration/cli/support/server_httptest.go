package support

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/encoder"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/MeKo-Tech/imgforge/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server around the real HTTP handlers.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// testServerConfig emits small PNGs so responses stay deterministic.
func testServerConfig() server.Config {
	defaults := pipeline.DefaultSettings()
	defaults.OutputFormat = encoder.PNG
	defaults.Width = 32
	defaults.Height = 32
	defaults.AllowLossyDownscale = false

	return server.Config{
		CORSOrigin:    "*",
		MaxUploadMB:   5,
		TimeoutSec:    30,
		MaxBatchItems: 8,
		BatchWorkers:  2,
		Defaults:      defaults,
	}
}

// StartHTTPTestServer starts an in-process server on a random local port.
func (testCtx *TestContext) StartHTTPTestServer(cfg server.Config) error {
	testCtx.StopServer()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
	}
	return nil
}

// StopServer shuts the test server down if one is running.
func (testCtx *TestContext) StopServer() {
	if testCtx.HTTPTestServer == nil {
		return
	}
	testCtx.HTTPTestServer.Server.Close()
	_ = testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
}

// serverURL joins a path onto the running server's base URL.
func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("no server is running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

// doRequest sends req and records status, headers and body.
func (testCtx *TestContext) doRequest(req *http.Request) error {
	resp, err := testCtx.HTTPTestServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[strings.ToLower(k)] = resp.Header.Get(k)
	}
	return nil
}

// get issues a GET request against the test server.
func (testCtx *TestContext) get(path string) error {
	target, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return testCtx.doRequest(req)
}

// uploadFile posts a workspace file as the "image" part plus form fields.
func (testCtx *TestContext) uploadFile(path, name string, fields map[string]string) error {
	target, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, target, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.doRequest(req)
}
