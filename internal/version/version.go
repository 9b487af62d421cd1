// Package version holds build information stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/partsinc/parts-server/internal/version.Version=1.2.0" ./cmd/partsd
package version

var (
	// Version is the release version of partsd.
	Version = "0.1.0"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
