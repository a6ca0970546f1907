// Package buildinfo contains application metadata that can be set at build time.
//
// For release builds, use ldflags to set the version:
//
//	go build -ldflags "\
//	  -X github.com/dotside-studios/rfid-sfl/buildinfo.Version=1.0.0 \
//	  -X github.com/dotside-studios/rfid-sfl/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
)

// Application metadata, overridable via ldflags.
var (
	// Name is the technical application name (log service field, user agent).
	Name = "rfid-sfl"

	// DisplayName is shown in the tray, mDNS and the index banner.
	DisplayName = "RFID Server For Libraries"

	// Description is a short description of the application.
	Description = "Library RFID tag reader/writer exposed over local HTTP"

	// Version is the semantic version (set via ldflags for releases).
	Version = "dev"

	// Commit is the git commit hash (set via ldflags).
	Commit = ""

	// BuildTime is the build timestamp (set via ldflags).
	BuildTime = ""
)

// FullVersion returns the version string with optional commit info,
// e.g. "dev", "1.0.0" or "1.0.0 (abc1234)".
func FullVersion() string {
	if Commit != "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return Version
}

// Banner is the plain text served at the HTTP root.
func Banner() string {
	return fmt.Sprintf("%s %s", DisplayName, FullVersion())
}

// BuildInfo returns a multi-line string with full build information.
func BuildInfo() string {
	info := fmt.Sprintf("%s %s\n", Name, FullVersion())
	info += fmt.Sprintf("  %s\n", Description)
	info += fmt.Sprintf("  Go: %s\n", runtime.Version())
	info += fmt.Sprintf("  OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		info += fmt.Sprintf("\n  Built: %s", BuildTime)
	}
	return info
}

// IsDev reports whether this is a development build.
func IsDev() bool {
	return Version == "dev"
}
