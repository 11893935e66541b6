package store

import (
	"fmt"

	"github.com/thiagokokada/gitk-core/internal/diff"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store/command"
	"github.com/thiagokokada/gitk-core/internal/store/effect"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

func diffTargetIs(rs *RepoState, target domain.DiffTarget) bool {
	return rs.DiffTarget != nil && *rs.DiffTarget == target
}

// selectDiff points the diff view at target and loads the diff plus at most
// one file preview: image or text, never both.
func selectDiff(rs *RepoState, target domain.DiffTarget) []effect.Effect {
	t := target
	rs.DiffTarget = &t
	return reloadDiff(rs)
}

func reloadDiff(rs *RepoState) []effect.Effect {
	if rs.DiffTarget == nil {
		return nil
	}
	target := *rs.DiffTarget
	rs.Diff.startLoading()
	effs := []effect.Effect{effect.LoadDiff{Repo: rs.ID, Target: target}}
	switch {
	case target.IsImage():
		rs.DiffFile.reset()
		rs.DiffFileImage.startLoading()
		effs = append(effs, effect.LoadDiffFileImage{Repo: rs.ID, Target: target})
	case target.HasFilePreview():
		rs.DiffFileImage.reset()
		rs.DiffFile.startLoading()
		effs = append(effs, effect.LoadDiffFile{Repo: rs.ID, Target: target})
	default:
		rs.DiffFile.reset()
		rs.DiffFileImage.reset()
	}
	return effs
}

// clearDiff forgets the selection. In-flight loads for the old target are
// left to finish and are dropped on arrival.
func clearDiff(rs *RepoState) {
	rs.DiffTarget = nil
	rs.Diff.reset()
	rs.DiffFile.reset()
	rs.DiffFileImage.reset()
}

// applyPatchAt builds a patch from the selected working tree diff and
// turns it into the matching command.
func applyPatchAt(rs *RepoState, action msg.PatchAction, srcIxs []int, wholeHunk bool) []effect.Effect {
	cmd, err := patchCommand(rs, action, srcIxs, wholeHunk)
	if err != nil {
		setLastError(rs, fmt.Sprintf("%s: %v", action, err))
		return nil
	}
	return []effect.Effect{effect.RunCommand{Repo: rs.ID, Command: cmd}}
}

func patchCommand(rs *RepoState, action msg.PatchAction, srcIxs []int, wholeHunk bool) (command.Command, error) {
	if !rs.Open.IsReady() {
		return nil, fmt.Errorf("repository is not open")
	}
	if rs.DiffTarget == nil || rs.DiffTarget.Kind != domain.DiffTargetWorkingTree {
		return nil, fmt.Errorf("no working tree diff selected")
	}
	if !rs.Diff.IsReady() {
		return nil, fmt.Errorf("diff of %s is not loaded", rs.DiffTarget)
	}
	wantArea := domain.DiffAreaUnstaged
	if action == msg.ActionUnstage {
		wantArea = domain.DiffAreaStaged
	}
	if rs.DiffTarget.Area != wantArea {
		return nil, fmt.Errorf("cannot %s lines of the %s diff", action, rs.DiffTarget.Area)
	}
	lines := rs.Diff.Value.Lines
	reverse := action != msg.ActionStage
	var patch string
	var err error
	if wholeHunk {
		if len(srcIxs) != 1 {
			return nil, fmt.Errorf("expected one line, got %d", len(srcIxs))
		}
		patch, err = diff.HunkPatch(lines, srcIxs[0])
	} else {
		patch, err = diff.LinesPatch(lines, diff.ChangedLines(lines, srcIxs), reverse)
	}
	if err != nil {
		return nil, err
	}
	switch action {
	case msg.ActionUnstage:
		return command.UnstageHunk{Patch: patch}, nil
	case msg.ActionDiscard:
		return command.ApplyWorktreePatch{Patch: patch, Reverse: true}, nil
	default:
		return command.StageHunk{Patch: patch}, nil
	}
}

// refreshAfterFailure reloads what a command can leave half done.
const refreshAfterFailure = command.RefreshStatus | command.RefreshRebaseState | command.RefreshMergeMessage

func commandFinished(rs *RepoState, m msg.RepoCommandFinished) []effect.Effect {
	out := m.Output
	if out.Command == "" {
		out.Command = m.Command.String()
	}
	rs.CommandLog = append(rs.CommandLog, CommandLogEntry{
		Time:    now(),
		RunID:   out.RunID,
		Command: out.Command,
		Success: m.Err == nil,
		Stdout:  out.Stdout,
		Stderr:  out.Stderr,
	})
	if m.Err != nil {
		setLastError(rs, fmt.Sprintf("%s failed: %v", m.Command, m.Err))
		return refresh(rs, refreshAfterFailure)
	}
	effs := refresh(rs, m.Command.Refresh())
	if t := rs.DiffTarget; t != nil && t.Kind == domain.DiffTargetWorkingTree && m.Command.Areas().Contains(t.Area) {
		effs = append(effs, reloadDiff(rs)...)
	}
	return effs
}
