// Package version holds the build version of the server.
package version

// Version is the current release. Overridden at build time via -ldflags.
var Version = "0.3.0"

// DevVersion is the version suffix used in dev mode.
var DevVersion = Version + "-dev"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}
