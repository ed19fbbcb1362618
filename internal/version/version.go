// Package version holds build metadata for the artisanmatch binary,
// injected via ldflags:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0 \
//	  -X .../internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X .../internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata as "version (commit, built date)".
func String() string {
	return Version + " (" + Commit + ", built " + Date + ")"
}
