// Package version holds build metadata injected at link time.
package version

import "fmt"

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a human-readable version string.
func Info() string {
	return fmt.Sprintf("realtorsblue %s (commit %s, built %s)", Version, Commit, Date)
}
