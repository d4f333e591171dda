package support

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/server"
	"github.com/cucumber/godog"
)

// theServerIsRunning starts the server with test defaults.
func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.StartHTTPTestServer(testServerConfig())
}

// theServerIsRunningWithRateLimit starts the server with a per-minute limit.
func (testCtx *TestContext) theServerIsRunningWithRateLimit(perMinute int) error {
	cfg := testServerConfig()
	cfg.RateLimit = &server.RateLimitConfig{RequestsPerMinute: perMinute}
	return testCtx.StartHTTPTestServer(cfg)
}

// iRequest sends a GET request to path.
func (testCtx *TestContext) iRequest(path string) error {
	return testCtx.get(path)
}

// iUploadTo posts a file without settings.
func (testCtx *TestContext) iUploadTo(name, path string) error {
	return testCtx.uploadFile(path, name, nil)
}

// iUploadToWithSettings posts a file with a JSON settings document.
func (testCtx *TestContext) iUploadToWithSettings(name, path, settings string) error {
	return testCtx.uploadFile(path, name, map[string]string{"settings": settings})
}

// iUploadToWithJSONResponse posts a file and asks for a JSON response.
func (testCtx *TestContext) iUploadToWithJSONResponse(name, path string) error {
	return testCtx.uploadFile(path, name, map[string]string{"response": "json"})
}

// theResponseStatusShouldBe verifies the HTTP status code.
func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseHeaderShouldBe verifies a response header value.
func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	got, ok := testCtx.LastHTTPHeaders[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("response has no %s header", name)
	}
	if got != value {
		return fmt.Errorf("header %s = %q, want %q", name, got, value)
	}
	return nil
}

// theResponseHeaderShouldBePresent verifies a response header is set.
func (testCtx *TestContext) theResponseHeaderShouldBePresent(name string) error {
	if _, ok := testCtx.LastHTTPHeaders[strings.ToLower(name)]; !ok {
		return fmt.Errorf("response has no %s header", name)
	}
	return nil
}

// theResponseBodyShouldContain verifies the body contains text.
func (testCtx *TestContext) theResponseBodyShouldContain(text string) error {
	if !strings.Contains(string(testCtx.LastHTTPResponse), text) {
		return fmt.Errorf("response body does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseJSONFieldShouldBe compares a dotted path in the JSON body.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	var doc any
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &doc); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	value, err := lookupJSON(doc, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("response field %s = %q, want %q", path, got, expected)
	}
	return nil
}

// RegisterServerSteps registers HTTP server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the imgforge server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the imgforge server is running with a limit of (\d+) requests per minute$`, testCtx.theServerIsRunningWithRateLimit)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" with settings '([^']*)'$`, testCtx.iUploadToWithSettings)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" asking for JSON$`, testCtx.iUploadToWithJSONResponse)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should be present$`, testCtx.theResponseHeaderShouldBePresent)
	sc.Step(`^the response body should contain "([^"]*)"$`, testCtx.theResponseBodyShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
}
