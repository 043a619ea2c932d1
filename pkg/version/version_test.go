package version

import (
	"runtime"
	"strings"
	"testing"
)

func setBuild(t *testing.T, version, commit, buildTime, dirty string) {
	t.Helper()
	origVersion, origCommit, origTime, origDirty := Version, GitCommit, BuildTime, GitDirty
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, GitDirty = origVersion, origCommit, origTime, origDirty
	})
	Version, GitCommit, BuildTime, GitDirty = version, commit, buildTime, dirty
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		dirty     string
		appName   string
		want      string
	}{
		{
			name:      "clean build",
			version:   "v1.0.0",
			commit:    "abc1234",
			buildTime: "2026-01-01T12:00:00Z",
			dirty:     "false",
			appName:   "parking",
			want:      "parking v1.0.0 (abc1234 2026-01-01T12:00:00Z)",
		},
		{
			name:      "dirty build",
			version:   "v1.0.0",
			commit:    "abc1234",
			buildTime: "2026-01-01T12:00:00Z",
			dirty:     "true",
			appName:   "parking",
			want:      "parking v1.0.0 (abc1234-dirty 2026-01-01T12:00:00Z)",
		},
		{
			name:      "dev version",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			appName:   "parking-server",
			want:      "parking-server dev (unknown unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuild(t, tt.version, tt.commit, tt.buildTime, tt.dirty)

			if got := GetVersion(tt.appName); got != tt.want {
				t.Errorf("GetVersion(%q) = %q, want %q", tt.appName, got, tt.want)
			}
		})
	}
}

func TestGetVersionInfo(t *testing.T) {
	setBuild(t, "v1.2.3", "abc1234", "2026-01-15T10:00:00Z", "false")

	info := GetVersionInfo()
	for _, field := range []string{
		"Version:    v1.2.3",
		"Git commit: abc1234 (clean)",
		"Built:      2026-01-15T10:00:00Z",
		"Go version:",
	} {
		if !strings.Contains(info, field) {
			t.Errorf("GetVersionInfo() missing field %q\nGot:\n%s", field, info)
		}
	}

	GitDirty = "true"
	if info := GetVersionInfo(); !strings.Contains(info, "(dirty)") {
		t.Errorf("GetVersionInfo() should show (dirty) when GitDirty=true\nGot:\n%s", info)
	}
}

func TestCurrent(t *testing.T) {
	setBuild(t, "v0.3.0", "f00d", "2026-04-01T00:00:00Z", "true")

	got := Current()
	if got.Version != "v0.3.0" || got.GitCommit != "f00d" || !got.Dirty {
		t.Errorf("unexpected build info %+v", got)
	}
	if got.GoVersion != runtime.Version() {
		t.Errorf("expected Go version %s, got %s", runtime.Version(), got.GoVersion)
	}
}
