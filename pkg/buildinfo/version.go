// Package buildinfo carries the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/matzehuels/clustermap/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/clustermap/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build stamp as reported by the HTTP API.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build stamp.
func Get() Info { return Info{Version: Version, Commit: Commit, Date: Date} }

// Template returns the cobra --version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
