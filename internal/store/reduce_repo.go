package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store/command"
	"github.com/thiagokokada/gitk-core/internal/store/effect"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

func openRepo(ids *idAllocator, state *AppState, path string) []effect.Effect {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := ids.next()
	rs := RepoState{ID: id, Spec: domain.RepoSpec{Workdir: path}}
	rs.Open.startLoading()
	state.Repos = append(state.Repos, rs)
	if state.ActiveRepo == 0 {
		state.ActiveRepo = id
	}
	return []effect.Effect{effect.OpenRepo{Repo: id, Path: path}}
}

func repoOpened(handles handleTable, state *AppState, m msg.RepoOpened) []effect.Effect {
	rs := state.Repo(m.Repo)
	if rs == nil {
		return nil
	}
	err := m.Err
	if err == nil && m.Handle == nil {
		err = errors.New("no repository handle")
	}
	if err != nil {
		rs.Open.finish(domain.RepoSpec{}, err)
		setLastError(rs, fmt.Sprintf("open %s: %v", rs.Spec.Workdir, err))
		return nil
	}
	handles[rs.ID] = m.Handle
	rs.Spec = m.Handle.Spec()
	rs.Open.finish(rs.Spec, nil)
	return refresh(rs, command.RefreshAll)
}

func closeRepo(handles handleTable, state *AppState, id domain.RepoID) {
	ix := slices.IndexFunc(state.Repos, func(rs RepoState) bool { return rs.ID == id })
	if ix < 0 {
		return
	}
	state.Repos = slices.Delete(state.Repos, ix, ix+1)
	delete(handles, id)
	if state.ActiveRepo != id {
		return
	}
	state.ActiveRepo = 0
	if len(state.Repos) > 0 {
		state.ActiveRepo = state.Repos[min(ix, len(state.Repos)-1)].ID
	}
}

// refresh marks the selected views Loading and returns their load effects.
func refresh(rs *RepoState, what command.Refresh) []effect.Effect {
	id := rs.ID
	var effs []effect.Effect
	if what.Has(command.RefreshHead) {
		rs.Head.startLoading()
		effs = append(effs, effect.LoadHead{Repo: id})
	}
	if what.Has(command.RefreshUpstream) {
		rs.Upstream.startLoading()
		effs = append(effs, effect.LoadUpstream{Repo: id})
	}
	if what.Has(command.RefreshBranches) {
		rs.Branches.startLoading()
		effs = append(effs, effect.LoadBranches{Repo: id})
	}
	if what.Has(command.RefreshRemoteBranches) {
		rs.RemoteBranches.startLoading()
		effs = append(effs, effect.LoadRemoteBranches{Repo: id})
	}
	if what.Has(command.RefreshTags) {
		rs.Tags.startLoading()
		effs = append(effs, effect.LoadTags{Repo: id})
	}
	if what.Has(command.RefreshRemotes) {
		rs.Remotes.startLoading()
		effs = append(effs, effect.LoadRemotes{Repo: id})
	}
	if what.Has(command.RefreshStatus) {
		rs.Status.startLoading()
		effs = append(effs, effect.LoadStatus{Repo: id})
	}
	if what.Has(command.RefreshLog) {
		rs.Log.startLoading()
		rs.LogLoadingMore = false
		effs = append(effs, effect.LoadLog{Repo: id, Scope: rs.LogScope})
	}
	if what.Has(command.RefreshStashes) {
		rs.Stashes.startLoading()
		effs = append(effs, effect.LoadStashes{Repo: id})
	}
	if what.Has(command.RefreshReflog) {
		rs.Reflog.startLoading()
		effs = append(effs, effect.LoadReflog{Repo: id})
	}
	if what.Has(command.RefreshRebaseState) {
		rs.RebaseActive.startLoading()
		effs = append(effs, effect.LoadRebaseState{Repo: id})
	}
	if what.Has(command.RefreshMergeMessage) {
		rs.MergeMessage.startLoading()
		effs = append(effs, effect.LoadMergeMessage{Repo: id})
	}
	return effs
}

const (
	refreshOnWorktreeChange = command.RefreshStatus
	refreshOnGitStateChange = command.RefreshHead | command.RefreshUpstream | command.RefreshBranches |
		command.RefreshStatus | command.RefreshLog | command.RefreshStashes | command.RefreshReflog |
		command.RefreshRebaseState | command.RefreshMergeMessage
)

func externallyChanged(rs *RepoState, kind msg.ChangeKind) []effect.Effect {
	if !rs.Open.IsReady() {
		return nil
	}
	what := refreshOnWorktreeChange
	if kind == msg.ChangeGitState {
		what = refreshOnGitStateChange
	}
	effs := refresh(rs, what)
	if rs.DiffTarget != nil && rs.DiffTarget.Kind == domain.DiffTargetWorkingTree {
		effs = append(effs, reloadDiff(rs)...)
	}
	return effs
}

func loadMoreHistory(rs *RepoState) []effect.Effect {
	if !rs.Log.IsReady() || rs.Log.Value.Next == nil || rs.LogLoadingMore {
		return nil
	}
	rs.LogLoadingMore = true
	cursor := *rs.Log.Value.Next
	return []effect.Effect{effect.LoadLog{Repo: rs.ID, Scope: rs.LogScope, Cursor: &cursor}}
}

func logLoaded(rs *RepoState, m msg.LogLoaded) {
	if m.Scope != rs.LogScope {
		return
	}
	if m.Cursor == nil {
		rs.LogLoadingMore = false
		rs.Log.finish(m.Page, m.Err)
		noteFailure(rs, "load history", m.Err)
		return
	}
	// a continuation only applies on top of the page it continues
	if !rs.LogLoadingMore || !rs.Log.IsReady() || rs.Log.Value.Next == nil || *rs.Log.Value.Next != *m.Cursor {
		return
	}
	rs.LogLoadingMore = false
	if m.Err != nil {
		noteFailure(rs, "load more history", m.Err)
		return
	}
	rs.Log.Value = domain.LogPage{
		Commits: slices.Concat(rs.Log.Value.Commits, m.Page.Commits),
		Next:    m.Page.Next,
	}
}

func startClone(state *AppState, m msg.CloneRepo) []effect.Effect {
	dest := m.Dest
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	if cs := state.clone(dest); cs != nil && !cs.Done {
		return nil
	}
	state.Clones = slices.DeleteFunc(state.Clones, func(cs CloneState) bool { return cs.Dest == dest })
	state.Clones = append(state.Clones, CloneState{URL: m.URL, Dest: dest})
	return []effect.Effect{effect.Clone{URL: m.URL, Dest: dest}}
}

func cloneFinished(ids *idAllocator, state *AppState, m msg.CloneFinished) []effect.Effect {
	cs := state.clone(m.Dest)
	if cs == nil || cs.Done {
		return nil
	}
	cs.Done = true
	if m.Err != nil {
		cs.Err = m.Err.Error()
		return nil
	}
	return openRepo(ids, state, m.Dest)
}
