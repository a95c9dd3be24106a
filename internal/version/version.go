// Package version exposes build metadata stamped at link time:
//
//	go build -ldflags "-X github.com/rickgao/marketsync/internal/version.Version=$(git describe --tags) \
//	                   -X github.com/rickgao/marketsync/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	Version = "dev"
	Commit  = "unknown"
)

// String renders the version the way the CLI prints it.
func String() string {
	return Version + " (" + Commit + ")"
}
