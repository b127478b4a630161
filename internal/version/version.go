// Package version carries build identification, stamped in via -ldflags at
// release time. Local builds report "dev".
package version

var (
	// Version is the release tag.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build identity the way the binaries log it.
func String() string {
	return Version + " (" + GitSHA + ")"
}
