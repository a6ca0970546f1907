package buildinfo

import (
	"strings"
	"testing"
)

func TestFullVersion(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "1.2.0", ""
	if got := FullVersion(); got != "1.2.0" {
		t.Errorf("FullVersion() = %q", got)
	}

	Commit = "abc1234"
	if got := FullVersion(); got != "1.2.0 (abc1234)" {
		t.Errorf("FullVersion() = %q", got)
	}
	if got := Banner(); !strings.HasPrefix(got, DisplayName) || !strings.HasSuffix(got, "(abc1234)") {
		t.Errorf("Banner() = %q", got)
	}
	if IsDev() {
		t.Error("IsDev() = true for release version")
	}
}

func TestBuildInfo(t *testing.T) {
	info := BuildInfo()
	if !strings.HasPrefix(info, Name+" ") {
		t.Errorf("BuildInfo() = %q, want name prefix", info)
	}
	if !strings.Contains(info, "OS/Arch:") {
		t.Errorf("BuildInfo() = %q, want OS/Arch line", info)
	}
}
