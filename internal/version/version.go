package version

import (
	"runtime/debug"
)

var (
	Version = "1.0.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns the full version string. Release builds inject Commit via
// ldflags and get the bare version; other builds append the VCS revision
// recorded in the binary's build info, with a -dirty marker for modified
// working trees.
func Resolve() string {
	return resolveVersion(Version, Commit, debug.ReadBuildInfo)
}

func resolveVersion(base, commit string, readInfo func() (*debug.BuildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit != "" && commit != "unknown" {
		return base
	}

	suffix := buildInfoSuffix(readInfo)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

func buildInfoSuffix(readInfo func() (*debug.BuildInfo, bool)) string {
	info, ok := readInfo()
	if !ok || info == nil {
		return ""
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if revision == "" {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}
