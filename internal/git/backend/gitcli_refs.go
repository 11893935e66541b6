package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (g *gitCLI) CurrentBranch() (string, error) {
	ref, err := g.read(true, "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(ref)
	if name == "" {
		return "HEAD", nil
	}
	return name, nil
}

func (g *gitCLI) UpstreamDivergence() (*domain.UpstreamDivergence, error) {
	upstream, err := g.read(true, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		// no upstream configured, or detached HEAD
		return nil, nil
	}
	upstream = strings.TrimSpace(upstream)
	if upstream == "" {
		return nil, nil
	}
	out, err := g.read(false, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return nil, git.BackendError("git rev-list", fmt.Sprintf("unexpected output %q", out))
	}
	ahead, err1 := strconv.Atoi(fields[0])
	behind, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return nil, git.BackendError("git rev-list", fmt.Sprintf("unexpected output %q", out))
	}
	return &domain.UpstreamDivergence{Upstream: upstream, Ahead: ahead, Behind: behind}, nil
}

func (g *gitCLI) ListBranches() ([]domain.Branch, error) {
	const format = "%(refname:short)%00%(objectname)%00%(upstream:short)%00%(HEAD)"
	out, err := g.read(false, "for-each-ref", "--format="+format, "refs/heads")
	if err != nil {
		return nil, err
	}
	return parseBranches(out), nil
}

func parseBranches(out string) []domain.Branch {
	var branches []domain.Branch
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\x00")
		if len(fields) != 4 || fields[0] == "" {
			continue
		}
		branches = append(branches, domain.Branch{
			Name:     fields[0],
			Target:   domain.CommitID(fields[1]),
			Upstream: fields[2],
			Current:  fields[3] == "*",
		})
	}
	return branches
}

func (g *gitCLI) ListRemoteBranches() ([]domain.RemoteBranch, error) {
	refs, err := g.listRefs()
	if err != nil {
		return nil, err
	}
	var out []domain.RemoteBranch
	for _, ref := range refs {
		if ref.kind != refKindRemoteBranch {
			continue
		}
		remote, name, ok := strings.Cut(ref.name, "/")
		if !ok || name == "HEAD" {
			continue
		}
		out = append(out, domain.RemoteBranch{Remote: remote, Name: name, Target: domain.CommitID(ref.hash)})
	}
	return out, nil
}

func (g *gitCLI) ListTags() ([]domain.Tag, error) {
	refs, err := g.listRefs()
	if err != nil {
		return nil, err
	}
	var out []domain.Tag
	for _, ref := range refs {
		if ref.kind == refKindTag {
			out = append(out, domain.Tag{Name: ref.name, Target: domain.CommitID(ref.hash)})
		}
	}
	return out, nil
}

func (g *gitCLI) ListRemotes() ([]domain.Remote, error) {
	out, err := g.read(false, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return parseRemotes(out), nil
}

// parseRemotes keeps the fetch URL of every remote listed by "git remote -v".
func parseRemotes(out string) []domain.Remote {
	var remotes []domain.Remote
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || seen[fields[0]] {
			continue
		}
		if len(fields) == 3 && fields[2] != "(fetch)" {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, domain.Remote{Name: fields[0], URL: fields[1]})
	}
	return remotes
}

type refKind uint8

const (
	refKindBranch refKind = iota
	refKindRemoteBranch
	refKindTag
)

type ref struct {
	hash string
	kind refKind
	name string // short name: main, origin/main, v1
}

func (g *gitCLI) listRefs() ([]ref, error) {
	out, err := g.read(true, "--no-pager", "show-ref", "--dereference")
	if err != nil {
		return nil, err
	}
	refs, err := parseRefsFromShowRef(out)
	if err != nil {
		return nil, git.WrapBackend("git show-ref", err)
	}
	return refs, nil
}

func parseRefsFromShowRef(out string) ([]ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		if base, ok := strings.CutSuffix(parts[1], "^{}"); ok {
			peeledByTagRef[base] = parts[0]
			continue
		}
		entries = append(entries, refEntry{hash: parts[0], ref: parts[1]})
	}

	var refs []ref
	for _, entry := range entries {
		if short, ok := strings.CutPrefix(entry.ref, "refs/tags/"); ok && short != "" {
			hash := entry.hash
			if peeled, ok := peeledByTagRef[entry.ref]; ok {
				hash = peeled
			}
			refs = append(refs, ref{hash: hash, kind: refKindTag, name: short})
		} else if short, ok := strings.CutPrefix(entry.ref, "refs/heads/"); ok && short != "" {
			refs = append(refs, ref{hash: entry.hash, kind: refKindBranch, name: short})
		} else if short, ok := strings.CutPrefix(entry.ref, "refs/remotes/"); ok && short != "" {
			refs = append(refs, ref{hash: entry.hash, kind: refKindRemoteBranch, name: short})
		}
	}
	return refs, nil
}
