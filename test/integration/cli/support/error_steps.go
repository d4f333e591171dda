package support

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// theErrorShouldMention verifies the command error or its output mentions text.
func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected an error mentioning %q, command succeeded\nOutput: %s", text, testCtx.LastOutput)
	}
	haystack := strings.ToLower(testCtx.LastError.Error() + "\n" + testCtx.LastOutput)
	if !strings.Contains(haystack, strings.ToLower(text)) {
		return fmt.Errorf("error does not mention %q\nError: %v\nOutput: %s", text, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMentionFileNotFound verifies a missing file error.
func (testCtx *TestContext) theErrorShouldMentionFileNotFound() error {
	return testCtx.theErrorShouldMention("no such file")
}

// theErrorShouldMentionUnknownFlag verifies an unknown flag error.
func (testCtx *TestContext) theErrorShouldMentionUnknownFlag() error {
	return testCtx.theErrorShouldMention("unknown flag")
}

// theErrorShouldMentionInvalidPort verifies invalid port error.
func (testCtx *TestContext) theErrorShouldMentionInvalidPort() error {
	return testCtx.theErrorShouldMention("invalid port")
}

// theErrorShouldSuggestAvailableCommands verifies an unknown command error.
func (testCtx *TestContext) theErrorShouldSuggestAvailableCommands() error {
	for _, indicator := range []string{"unknown command", "available commands", "--help"} {
		if strings.Contains(strings.ToLower(testCtx.LastOutput), indicator) {
			return nil
		}
	}
	return fmt.Errorf("error output does not suggest available commands: %s", testCtx.LastOutput)
}

// theOutputShouldContainVersionInformation verifies the version banner.
func (testCtx *TestContext) theOutputShouldContainVersionInformation() error {
	if !strings.Contains(testCtx.LastOutput, "imgforge version") {
		return fmt.Errorf("output does not contain version information: %s", testCtx.LastOutput)
	}
	return nil
}

// RegisterErrorSteps registers error assertion steps.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the error should mention file not found$`, testCtx.theErrorShouldMentionFileNotFound)
	sc.Step(`^the error should mention unknown flag$`, testCtx.theErrorShouldMentionUnknownFlag)
	sc.Step(`^the error should mention invalid port$`, testCtx.theErrorShouldMentionInvalidPort)
	sc.Step(`^the error should suggest available commands$`, testCtx.theErrorShouldSuggestAvailableCommands)
	sc.Step(`^the output should contain version information$`, testCtx.theOutputShouldContainVersionInformation)
}
