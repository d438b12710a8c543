// Package version carries build identification, set via -ldflags at release
// time.
package version

var (
	// Version is the current application version.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns the full build identification line.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
