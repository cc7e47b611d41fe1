package gotmt

// Application metadata.
const (
	// Name is the application name.
	Name = "gotmt"

	// Description is a short description of the application.
	Description = "Go Translation Manager - translation strings with machine-translated fan-out"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/gotmt"

	// License is the software license.
	License = "MIT"
)

// Build information, set via ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/gotmt.Version=1.0.0 -X github.com/ZaguanLabs/gotmt.GitCommit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the application.
	Version = "0.1.0"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// FullVersion returns the version string with the short commit appended
// when it is known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns a user agent string for outbound provider requests.
func UserAgent() string {
	return Name + "/" + Version
}
