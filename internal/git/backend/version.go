package backend

import (
	"cmp"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// gitVersion is major, minor and patch.
type gitVersion [3]int

// Oldest git the CLI backend accepts. "git restore", "git switch" and
// "git status --porcelain=v2 --branch" all need at least this.
var minGitVersion = gitVersion{2, 23, 0}

// versionRe finds the first dotted number in "git --version" output, which
// also covers vendor builds like "2.39.3 (Apple Git-146)" and
// "2.39.3.windows.1".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func MinGitVersion() string {
	return minGitVersion.String()
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v gitVersion) compare(other gitVersion) int {
	for i := range v {
		if c := cmp.Compare(v[i], other[i]); c != 0 {
			return c
		}
	}
	return 0
}

func parseGitVersionOutput(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	s = strings.TrimSpace(strings.TrimPrefix(s, "git version"))
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return gitVersion{}, false
	}
	var v gitVersion
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return gitVersion{}, false
		}
		v[i] = n
	}
	return v, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.compare(minGitVersion) < 0 {
		return fmt.Errorf("git %s is too old; gitk-core requires git >= %s", got, minGitVersion)
	}
	return nil
}

// probeGitVersion runs "git --version" once per process.
var probeGitVersion = sync.OnceValues(func() (string, error) {
	raw, err := exec.Command("git", "--version").CombinedOutput()
	out := strings.TrimSpace(string(raw))
	switch {
	case err != nil && out != "":
		return out, fmt.Errorf("git --version: %v: %s", err, out)
	case err != nil:
		return out, fmt.Errorf("git --version: %w", err)
	}
	return out, nil
})

// GitVersion returns the output of "git --version".
func GitVersion() (string, error) {
	return probeGitVersion()
}

var ensureMinGitVersion = sync.OnceValue(func() error {
	out, err := probeGitVersion()
	if err != nil {
		return err
	}
	return validateGitVersionOutput(out)
})
