package backend

import (
	"fmt"
	"strings"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func requireName(op, what, name string) error {
	if strings.TrimSpace(name) == "" {
		return git.BackendError(op, what+" not specified")
	}
	if strings.HasPrefix(name, "-") {
		return git.BackendError(op, fmt.Sprintf("invalid %s name %q", what, name))
	}
	return nil
}

func (g *gitCLI) CreateBranch(name string, target string) (domain.CommandOutput, error) {
	if err := requireName("git branch", "branch", name); err != nil {
		return domain.CommandOutput{}, err
	}
	args := []string{"branch", name}
	if target != "" {
		args = append(args, target)
	}
	return g.mutate(args...)
}

func (g *gitCLI) DeleteBranch(name string, force bool) (domain.CommandOutput, error) {
	if err := requireName("git branch", "branch", name); err != nil {
		return domain.CommandOutput{}, err
	}
	flag := "-d"
	if force {
		flag = "-D"
	}
	return g.mutate("branch", flag, name)
}

func (g *gitCLI) CheckoutBranch(name string) (domain.CommandOutput, error) {
	if err := requireName("git switch", "branch", name); err != nil {
		return domain.CommandOutput{}, err
	}
	return g.mutate("switch", "--", name)
}

func (g *gitCLI) CheckoutCommit(id domain.CommitID) (domain.CommandOutput, error) {
	if err := requireName("git switch", "commit", string(id)); err != nil {
		return domain.CommandOutput{}, err
	}
	return g.mutate("switch", "--detach", string(id))
}

func (g *gitCLI) SetUpstream(branch, upstream string) (domain.CommandOutput, error) {
	return g.mutate("branch", "--set-upstream-to="+upstream, branch)
}

func (g *gitCLI) CreateTag(name string, target domain.CommitID) (domain.CommandOutput, error) {
	if err := requireName("git tag", "tag", name); err != nil {
		return domain.CommandOutput{}, err
	}
	args := []string{"tag", name}
	if target != "" {
		args = append(args, string(target))
	}
	return g.mutate(args...)
}

func (g *gitCLI) DeleteTag(name string) (domain.CommandOutput, error) {
	if err := requireName("git tag", "tag", name); err != nil {
		return domain.CommandOutput{}, err
	}
	return g.mutate("tag", "-d", name)
}

func (g *gitCLI) AddRemote(name, url string) (domain.CommandOutput, error) {
	if err := requireName("git remote", "remote", name); err != nil {
		return domain.CommandOutput{}, err
	}
	return g.mutate("remote", "add", "--", name, url)
}

func (g *gitCLI) RemoveRemote(name string) (domain.CommandOutput, error) {
	if err := requireName("git remote", "remote", name); err != nil {
		return domain.CommandOutput{}, err
	}
	return g.mutate("remote", "remove", name)
}

func (g *gitCLI) StagePaths(paths []string) (domain.CommandOutput, error) {
	if len(paths) == 0 {
		return domain.CommandOutput{}, git.BackendError("git add", "no paths")
	}
	return g.mutate(append([]string{"add", "-A", "--"}, paths...)...)
}

func (g *gitCLI) UnstagePaths(paths []string) (domain.CommandOutput, error) {
	if len(paths) == 0 {
		return domain.CommandOutput{}, git.BackendError("git restore", "no paths")
	}
	head, err := g.read(true, "rev-parse", "-q", "--verify", "HEAD")
	if err != nil {
		return domain.CommandOutput{}, err
	}
	if strings.TrimSpace(head) == "" {
		// nothing to restore from on an unborn branch
		return g.mutate(append([]string{"rm", "--cached", "-r", "--quiet", "--"}, paths...)...)
	}
	return g.mutate(append([]string{"restore", "--staged", "--"}, paths...)...)
}

func (g *gitCLI) DiscardWorktreeChanges(paths []string) (domain.CommandOutput, error) {
	if len(paths) == 0 {
		return domain.CommandOutput{}, git.BackendError("git restore", "no paths")
	}
	var tracked, untracked []string
	for _, p := range paths {
		isNew, err := g.isUntracked(p)
		if err != nil {
			return domain.CommandOutput{}, err
		}
		if isNew {
			untracked = append(untracked, p)
		} else {
			tracked = append(tracked, p)
		}
	}
	var out domain.CommandOutput
	if len(untracked) > 0 {
		o, err := g.mutate(append([]string{"clean", "-f", "--"}, untracked...)...)
		if err != nil {
			return o, err
		}
		out = o
	}
	if len(tracked) > 0 {
		o, err := g.mutate(append([]string{"restore", "--worktree", "--"}, tracked...)...)
		return mergeOutputs(out, o), err
	}
	return out, nil
}

func mergeOutputs(a, b domain.CommandOutput) domain.CommandOutput {
	if a.Command == "" {
		return b
	}
	return domain.CommandOutput{
		Command:  a.Command + " && " + b.Command,
		Stdout:   a.Stdout + b.Stdout,
		Stderr:   a.Stderr + b.Stderr,
		ExitCode: b.ExitCode,
	}
}

func (g *gitCLI) ApplyPatch(patch string, target git.PatchTarget, reverse bool) (domain.CommandOutput, error) {
	if patch == "" {
		return domain.CommandOutput{}, git.BackendError("git apply", "empty patch")
	}
	args := []string{"apply", "--whitespace=nowarn"}
	if target == git.PatchToIndex {
		args = append(args, "--cached")
	}
	if reverse {
		args = append(args, "--reverse")
	}
	return g.mutateWithInput(patch, append(args, "-")...)
}

func (g *gitCLI) CheckoutConflictSide(path string, side domain.ConflictSide) (domain.CommandOutput, error) {
	if err := requireName("git checkout", "path", path); err != nil {
		return domain.CommandOutput{}, err
	}
	out, err := g.mutate("checkout", side.Flag(), "--", path)
	if err != nil {
		return out, err
	}
	add, err := g.mutate("add", "--", path)
	return mergeOutputs(out, add), err
}

func (g *gitCLI) Commit(message string, amend bool) (domain.CommandOutput, error) {
	if strings.TrimSpace(message) == "" && !amend {
		return domain.CommandOutput{}, git.BackendError("git commit", "empty commit message")
	}
	args := []string{"commit"}
	if amend {
		args = append(args, "--amend")
		if strings.TrimSpace(message) == "" {
			return g.mutate(append(args, "--no-edit")...)
		}
	}
	return g.mutateWithInput(message, append(args, "-F", "-")...)
}

func (g *gitCLI) Fetch(prune bool) (domain.CommandOutput, error) {
	args := []string{"fetch", "--all"}
	if prune {
		args = append(args, "--prune")
	}
	return g.mutate(args...)
}

func (g *gitCLI) Pull(mode domain.PullMode) (domain.CommandOutput, error) {
	args := []string{"pull"}
	switch mode {
	case domain.PullFastForwardOnly:
		args = append(args, "--ff-only")
	case domain.PullRebase:
		args = append(args, "--rebase")
	case domain.PullMerge:
		args = append(args, "--no-rebase")
	}
	return g.mutate(args...)
}

func (g *gitCLI) Push(force bool) (domain.CommandOutput, error) {
	args := []string{"push"}
	if force {
		args = append(args, "--force-with-lease")
	}
	out, err := g.mutate(args...)
	if err == nil || !strings.Contains(out.Stderr, "has no upstream branch") {
		return out, err
	}
	remotes, rerr := g.ListRemotes()
	if rerr != nil || len(remotes) == 0 {
		return out, err
	}
	return g.mutate(append(args, "--set-upstream", remotes[0].Name, "HEAD")...)
}

func (g *gitCLI) Reset(target string, mode domain.ResetMode) (domain.CommandOutput, error) {
	if target == "" {
		target = "HEAD"
	}
	return g.mutate("reset", mode.Flag(), target, "--")
}

func (g *gitCLI) RebaseContinue() (domain.CommandOutput, error) {
	return g.mutate("rebase", "--continue")
}

func (g *gitCLI) RebaseAbort() (domain.CommandOutput, error) {
	return g.mutate("rebase", "--abort")
}

func (g *gitCLI) StashCreate(message string, includeUntracked bool) (domain.CommandOutput, error) {
	args := []string{"stash", "push"}
	if includeUntracked {
		args = append(args, "--include-untracked")
	}
	if message != "" {
		args = append(args, "-m", message)
	}
	return g.mutate(args...)
}

func stashRef(index int) string {
	return fmt.Sprintf("stash@{%d}", index)
}

func (g *gitCLI) StashApply(index int) (domain.CommandOutput, error) {
	return g.mutate("stash", "apply", stashRef(index))
}

func (g *gitCLI) StashPop(index int) (domain.CommandOutput, error) {
	return g.mutate("stash", "pop", stashRef(index))
}

func (g *gitCLI) StashDrop(index int) (domain.CommandOutput, error) {
	return g.mutate("stash", "drop", stashRef(index))
}
