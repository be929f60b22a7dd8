// Package buildinfo exposes the version stamp baked into askgate
// binaries. The server's /version endpoint and the CLI's --version
// flag both read from here.
//
// Release builds overwrite the defaults with ldflags:
//
//	go build -ldflags "-X github.com/askgate/askgate-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/askgate/askgate-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// A binary built without the stamp reports "dev".
package buildinfo

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// Info is the version stamp in a serializable form.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get snapshots the stamp.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
	}
}

// String renders the one-line form used by --version output.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
