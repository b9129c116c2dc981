// Package version carries build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -X.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by
// `go install` when no ldflags were given.
func Resolved() string {
	if Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}

// String renders the full build description.
func String() string {
	return fmt.Sprintf("pydeps %s (commit %s, built %s)", Resolved(), Commit, Date)
}
