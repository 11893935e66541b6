// Package buildinfo reports what the running binary was built from.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Info is the subset of debug.BuildInfo worth printing.
type Info struct {
	Version   string
	GoVersion string
	Revision  string
	Modified  bool
	Tags      string
}

var readBuildInfo = debug.ReadBuildInfo

// Read returns the build information, with Version "dev" for builds
// outside a released module.
func Read() Info {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return Info{Version: "dev"}
	}
	out := Info{Version: info.Main.Version, GoVersion: info.GoVersion}
	if out.Version == "" || out.Version == "(devel)" {
		out.Version = "dev"
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "-tags":
			out.Tags = setting.Value
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.modified":
			out.Modified = setting.Value == "true"
		}
	}
	return out
}

// Version returns the module version or "dev" when unset.
func Version() string {
	return Read().Version
}

// String renders the version followed by whatever else is known, e.g.
// "v1.2.0 (rev 1a2b3c4, tags: gitcli)".
func (i Info) String() string {
	var extra []string
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if i.Modified {
			rev += "-dirty"
		}
		extra = append(extra, "rev "+rev)
	}
	if i.Tags != "" {
		extra = append(extra, "tags: "+i.Tags)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}
