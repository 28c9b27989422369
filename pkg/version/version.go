// Package version holds build information injected with -ldflags.
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

// Info renders the build information for the named program.
func Info(program string) string {
	return fmt.Sprintf("%s version %s\n  Git commit: %s\n  Built:      %s\n  Go version: %s\n",
		program, Version, GitCommit, BuildDate, GoVersion)
}
