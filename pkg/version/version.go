// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "dev"

	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"

	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"

	// GoVersion is the Go version used to build
	GoVersion = runtime.Version()
)

// UserAgent returns the string the query client sends as its HTTP
// User-Agent header, identifying the CLI build against the server it
// queries.
func UserAgent() string {
	return fmt.Sprintf("samply/%s (%s)", Version, GoVersion)
}
