package version

import (
	"fmt"
	"runtime"
)

// Build information. Populated at build-time via -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	// GitDirty is "true" when the tree had uncommitted changes
	GitDirty = ""
)

// BuildInfo is the build metadata reported by /health.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
}

func Current() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		Dirty:     GitDirty == "true",
		GoVersion: runtime.Version(),
	}
}

// GetVersion returns a one-line version string:
// parking-server 0.1.0 (abc1234 2026-03-01T08:00:00Z)
func GetVersion(name string) string {
	info := Current()
	dirty := ""
	if info.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s %s (%s%s %s)", name, info.Version, info.GitCommit, dirty, info.BuildTime)
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() string {
	info := Current()
	state := "clean"
	if info.Dirty {
		state = "dirty"
	}

	return fmt.Sprintf(`Version:    %s
Git commit: %s (%s)
Built:      %s
Go version: %s`,
		info.Version,
		info.GitCommit,
		state,
		info.BuildTime,
		info.GoVersion,
	)
}
