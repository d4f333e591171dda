// Package version holds the imgforge build identity. The variables are
// overridden at link time, for example:
//
//	go build -ldflags "-X github.com/MeKo-Tech/imgforge/internal/version.Version=v1.2.0"
package version

import "fmt"

var (
	Version   = "0.0.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the version, commit and build date.
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build identity for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
