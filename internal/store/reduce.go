package store

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
	"github.com/thiagokokada/gitk-core/internal/store/command"
	"github.com/thiagokokada/gitk-core/internal/store/effect"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

// handleTable maps open repositories to their live handles. Only the
// message loop reads or writes it.
type handleTable map[domain.RepoID]git.Repository

// idAllocator hands out repository ids starting at 1. Ids are never
// reused.
type idAllocator struct {
	last atomic.Uint64
}

func (a *idAllocator) next() domain.RepoID {
	return domain.RepoID(a.last.Add(1))
}

var (
	now = time.Now

	// unhandledMsg is called for a message type the reducer does not know.
	unhandledMsg = func(m msg.Msg) {
		slog.Error("reducer: unhandled message", slog.String("type", fmt.Sprintf("%T", m)))
	}
)

// reduce applies one message to state and returns the work it requests.
// It is the only function that mutates state.
func reduce(handles handleTable, ids *idAllocator, state *AppState, m msg.Msg) []effect.Effect {
	switch m := m.(type) {
	case msg.OpenRepo:
		return openRepo(ids, state, m.Path)
	case msg.RepoOpened:
		return repoOpened(handles, state, m)
	case msg.CloseRepo:
		closeRepo(handles, state, m.Repo)
		return nil
	case msg.SetActiveRepo:
		if state.Repo(m.Repo) != nil {
			state.ActiveRepo = m.Repo
		}
		return nil
	case msg.ReloadRepo:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if !rs.Open.IsReady() {
				return nil
			}
			effs := refresh(rs, command.RefreshAll)
			return append(effs, reloadDiff(rs)...)
		})
	case msg.RepoExternallyChanged:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			return externallyChanged(rs, m.Kind)
		})
	case msg.SetLogScope:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.LogScope = m.Scope
			return refresh(rs, command.RefreshLog)
		})
	case msg.LoadMoreHistory:
		return withRepo(state, m.Repo, loadMoreHistory)
	case msg.SelectCommit:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			id := m.Commit
			rs.SelectedCommit = &id
			rs.CommitDetails.startLoading()
			return []effect.Effect{effect.LoadCommitDetails{Repo: rs.ID, Commit: id}}
		})
	case msg.ClearCommitSelection:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.SelectedCommit = nil
			rs.CommitDetails.reset()
			return nil
		})
	case msg.SelectDiff:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			return selectDiff(rs, m.Target)
		})
	case msg.ClearDiffSelection:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			clearDiff(rs)
			return nil
		})
	case msg.ShowBlame:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			target := m.Target
			rs.BlameTarget = &target
			rs.Blame.startLoading()
			return []effect.Effect{effect.LoadBlame{Repo: rs.ID, Target: target}}
		})
	case msg.LoadWorktrees:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.Worktrees.startLoading()
			return []effect.Effect{effect.LoadWorktrees{Repo: rs.ID}}
		})
	case msg.LoadSubmodules:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.Submodules.startLoading()
			return []effect.Effect{effect.LoadSubmodules{Repo: rs.ID}}
		})
	case msg.ApplyHunkAt:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			return applyPatchAt(rs, m.Action, []int{m.SrcIx}, true)
		})
	case msg.ApplyLinesAt:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			return applyPatchAt(rs, m.Action, m.SrcIxs, false)
		})
	case msg.RunCommand:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if m.Command == nil || !rs.Open.IsReady() {
				return nil
			}
			return []effect.Effect{effect.RunCommand{Repo: rs.ID, Command: m.Command}}
		})
	case msg.CloneRepo:
		return startClone(state, m)
	case msg.DismissError:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.LastError = nil
			return nil
		})
	case msg.DrainDiagnostics:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			rs.Diagnostics = nil
			return nil
		})

	case msg.HeadLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[string] { return &rs.Head }, m.Branch, m.Err, "load head")
	case msg.UpstreamLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[*domain.UpstreamDivergence] { return &rs.Upstream }, m.Divergence, m.Err, "load upstream")
	case msg.BranchesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.Branch] { return &rs.Branches }, m.Branches, m.Err, "load branches")
	case msg.RemoteBranchesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.RemoteBranch] { return &rs.RemoteBranches }, m.Branches, m.Err, "load remote branches")
	case msg.TagsLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.Tag] { return &rs.Tags }, m.Tags, m.Err, "load tags")
	case msg.RemotesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.Remote] { return &rs.Remotes }, m.Remotes, m.Err, "load remotes")
	case msg.StatusLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[domain.RepoStatus] { return &rs.Status }, m.Status, m.Err, "load status")
	case msg.StashesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.StashEntry] { return &rs.Stashes }, m.Stashes, m.Err, "load stashes")
	case msg.ReflogLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.ReflogEntry] { return &rs.Reflog }, m.Entries, m.Err, "load reflog")
	case msg.WorktreesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.Worktree] { return &rs.Worktrees }, m.Worktrees, m.Err, "load worktrees")
	case msg.SubmodulesLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[[]domain.Submodule] { return &rs.Submodules }, m.Submodules, m.Err, "load submodules")
	case msg.RebaseStateLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[bool] { return &rs.RebaseActive }, m.InProgress, m.Err, "load rebase state")
	case msg.MergeMessageLoaded:
		return finishLoad(state, m.Repo, func(rs *RepoState) *Loadable[*string] { return &rs.MergeMessage }, m.Message, m.Err, "load merge message")
	case msg.LogLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			logLoaded(rs, m)
			return nil
		})
	case msg.CommitDetailsLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if rs.SelectedCommit == nil || *rs.SelectedCommit != m.Commit {
				return nil
			}
			rs.CommitDetails.finish(m.Details, m.Err)
			noteFailure(rs, "load commit details", m.Err)
			return nil
		})
	case msg.BlameLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if rs.BlameTarget == nil || *rs.BlameTarget != m.Target {
				return nil
			}
			rs.Blame.finish(m.Lines, m.Err)
			noteFailure(rs, "blame "+m.Target.Path, m.Err)
			return nil
		})
	case msg.DiffLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if !diffTargetIs(rs, m.Target) {
				return nil
			}
			rs.Diff.finish(m.Diff, m.Err)
			rs.DiffRev++
			noteFailure(rs, "diff "+m.Target.String(), m.Err)
			return nil
		})
	case msg.DiffFileLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if !diffTargetIs(rs, m.Target) || m.Target.IsImage() {
				return nil
			}
			rs.DiffFile.finish(m.File, m.Err)
			rs.DiffFileRev++
			noteFailure(rs, "read "+m.Target.String(), m.Err)
			return nil
		})
	case msg.DiffFileImageLoaded:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			if !diffTargetIs(rs, m.Target) || !m.Target.IsImage() {
				return nil
			}
			rs.DiffFileImage.finish(m.Image, m.Err)
			rs.DiffFileRev++
			noteFailure(rs, "read "+m.Target.String(), m.Err)
			return nil
		})
	case msg.RepoCommandFinished:
		return withRepo(state, m.Repo, func(rs *RepoState) []effect.Effect {
			return commandFinished(rs, m)
		})
	case msg.CloneProgress:
		if cs := state.clone(m.Dest); cs != nil && !cs.Done {
			cs.Progress = append(cs.Progress, m.Line)
		}
		return nil
	case msg.CloneFinished:
		return cloneFinished(ids, state, m)
	default:
		unhandledMsg(m)
		return nil
	}
}

// withRepo runs f on the state of id. Messages for a repository closed
// while they were in flight are dropped.
func withRepo(state *AppState, id domain.RepoID, f func(rs *RepoState) []effect.Effect) []effect.Effect {
	rs := state.Repo(id)
	if rs == nil {
		return nil
	}
	return f(rs)
}

func finishLoad[T any](state *AppState, id domain.RepoID, field func(*RepoState) *Loadable[T], v T, err error, op string) []effect.Effect {
	return withRepo(state, id, func(rs *RepoState) []effect.Effect {
		field(rs).finish(v, err)
		noteFailure(rs, op, err)
		return nil
	})
}

func appendDiagnostic(rs *RepoState, kind DiagnosticKind, message string) {
	rs.Diagnostics = append(rs.Diagnostics, DiagnosticEntry{Time: now(), Kind: kind, Message: message})
}

func noteFailure(rs *RepoState, op string, err error) {
	if err == nil {
		return
	}
	appendDiagnostic(rs, DiagnosticError, fmt.Sprintf("%s: %v", op, err))
}

func setLastError(rs *RepoState, message string) {
	rs.LastError = &message
	appendDiagnostic(rs, DiagnosticError, message)
}
