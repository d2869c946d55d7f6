// Package version holds build identity, overridable via -ldflags.
package version

var (
	Version = "dev"
	Commit  = "none"
)
