package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestRead(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })

	tests := []struct {
		name string
		info *debug.BuildInfo
		want string
	}{
		{"missing", nil, "dev"},
		{"devel", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "dev"},
		{"release", &debug.BuildInfo{Main: debug.Module{Version: "v1.2.0"}}, "v1.2.0"},
		{
			"vcs and tags",
			&debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.0"},
				Settings: []debug.BuildSetting{
					{Key: "-tags", Value: "gitcli"},
					{Key: "vcs.revision", Value: "1a2b3c4d5e6f"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			"v1.2.0 (rev 1a2b3c4-dirty, tags: gitcli)",
		},
	}
	for _, tt := range tests {
		readBuildInfo = func() (*debug.BuildInfo, bool) { return tt.info, tt.info != nil }
		if got := Read().String(); got != tt.want {
			t.Fatalf("%s: Read().String() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
