// Package version tells which build of bellchoir is running.
package version

import "runtime/debug"

// Version can be set at build time:
// go build -ldflags "-X github.com/vsariola/bellchoir/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short vcs revision embedded by the go tool, suffixed with
// -dirty for builds of a modified tree. Empty when not built from a checkout.
var Hash = vcsHash()

// VersionOrHash is Version if set, otherwise Hash, otherwise "dev".
var VersionOrHash = func() string {
	switch {
	case Version != "":
		return Version
	case Hash != "":
		return Hash
	}
	return "dev"
}()

func vcsHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}
