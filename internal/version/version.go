// Package version carries build metadata injected at link time.
package version

var (
	// Version is the release version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
)

func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + shortCommit(Commit) + ")"
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
