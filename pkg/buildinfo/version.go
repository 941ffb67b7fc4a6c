// Package buildinfo carries the version stamped into peergraph binaries.
//
// Release builds set the variables with the linker:
//
//	go build -ldflags "-X github.com/matzehuels/peergraph/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/peergraph/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/peergraph
package buildinfo

// Overridden at link time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template is the cobra version template.
func Template() string {
	return "{{.Name}} " + Version + " (" + Commit + ", " + Date + ")\n"
}

// UserAgent is sent with every registry request.
func UserAgent() string {
	return "peergraph/" + Version
}
