package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thiagokokada/gitk-core/internal/diff"
	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/executor"
	"github.com/thiagokokada/gitk-core/internal/git"
	"github.com/thiagokokada/gitk-core/internal/store/command"
	"github.com/thiagokokada/gitk-core/internal/store/effect"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

const (
	tracerName = "github.com/thiagokokada/gitk-core/internal/store"

	reflogLimit = 200
)

var errNoHandle = errors.New("repository is not open")

// dispatcher turns effects into collaborator calls on the executor and
// feeds their completions back through send. It never touches state.
type dispatcher struct {
	backend     git.Backend
	exec        *executor.Executor
	send        func(msg.Msg)
	logPageSize int
	details     *cache.Cache
	tracer      trace.Tracer
}

func newDispatcher(backend git.Backend, exec *executor.Executor, send func(msg.Msg), logPageSize int, detailsTTL time.Duration) *dispatcher {
	return &dispatcher{
		backend:     backend,
		exec:        exec,
		send:        send,
		logPageSize: logPageSize,
		details:     cache.New(detailsTTL, 2*detailsTTL),
		tracer:      otel.Tracer(tracerName),
	}
}

func spanName(e effect.Effect) string {
	return "effect." + strings.TrimPrefix(fmt.Sprintf("%T", e), "effect.")
}

// dispatch schedules e. repo is the handle the effect runs against; it is
// nil for effects that do not need one.
func (d *dispatcher) dispatch(repo git.Repository, e effect.Effect) {
	d.exec.Spawn(func() {
		ctx, span := d.tracer.Start(context.Background(), spanName(e),
			trace.WithAttributes(attribute.Int64("repo", int64(e.RepoID()))))
		defer span.End()

		m, err := d.safePerform(ctx, repo, e)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if m != nil {
			d.send(m)
		}
	})
}

// safePerform turns a panicking collaborator call into an ordinary failure
// so the slot waiting on the effect still settles.
func (d *dispatcher) safePerform(ctx context.Context, repo git.Repository, e effect.Effect) (m msg.Msg, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatcher: effect panicked",
				slog.String("effect", spanName(e)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = git.BackendError(spanName(e), fmt.Sprintf("panic: %v", r))
			m = failed(e, err)
		}
	}()
	return d.perform(ctx, repo, e)
}

// failed builds the completion message of e carrying only err.
func failed(e effect.Effect, err error) msg.Msg {
	id := e.RepoID()
	switch e := e.(type) {
	case effect.OpenRepo:
		return msg.RepoOpened{Repo: id, Err: err}
	case effect.Clone:
		return msg.CloneFinished{Dest: e.Dest, Err: err}
	case effect.LoadHead:
		return msg.HeadLoaded{Repo: id, Err: err}
	case effect.LoadUpstream:
		return msg.UpstreamLoaded{Repo: id, Err: err}
	case effect.LoadBranches:
		return msg.BranchesLoaded{Repo: id, Err: err}
	case effect.LoadRemoteBranches:
		return msg.RemoteBranchesLoaded{Repo: id, Err: err}
	case effect.LoadTags:
		return msg.TagsLoaded{Repo: id, Err: err}
	case effect.LoadRemotes:
		return msg.RemotesLoaded{Repo: id, Err: err}
	case effect.LoadStatus:
		return msg.StatusLoaded{Repo: id, Err: err}
	case effect.LoadLog:
		return msg.LogLoaded{Repo: id, Scope: e.Scope, Cursor: e.Cursor, Err: err}
	case effect.LoadStashes:
		return msg.StashesLoaded{Repo: id, Err: err}
	case effect.LoadReflog:
		return msg.ReflogLoaded{Repo: id, Err: err}
	case effect.LoadWorktrees:
		return msg.WorktreesLoaded{Repo: id, Err: err}
	case effect.LoadSubmodules:
		return msg.SubmodulesLoaded{Repo: id, Err: err}
	case effect.LoadRebaseState:
		return msg.RebaseStateLoaded{Repo: id, Err: err}
	case effect.LoadMergeMessage:
		return msg.MergeMessageLoaded{Repo: id, Err: err}
	case effect.LoadCommitDetails:
		return msg.CommitDetailsLoaded{Repo: id, Commit: e.Commit, Err: err}
	case effect.LoadBlame:
		return msg.BlameLoaded{Repo: id, Target: e.Target, Err: err}
	case effect.LoadDiff:
		return msg.DiffLoaded{Repo: id, Target: e.Target, Err: err}
	case effect.LoadDiffFile:
		return msg.DiffFileLoaded{Repo: id, Target: e.Target, Err: err}
	case effect.LoadDiffFileImage:
		return msg.DiffFileImageLoaded{Repo: id, Target: e.Target, Err: err}
	case effect.RunCommand:
		if e.Command == nil {
			return nil
		}
		out := domain.CommandOutput{Command: e.Command.Describe(), Stderr: err.Error()}
		return msg.RepoCommandFinished{Repo: id, Command: e.Command.Kind(), Output: out, Err: err}
	default:
		return nil
	}
}

func (d *dispatcher) perform(ctx context.Context, repo git.Repository, e effect.Effect) (msg.Msg, error) {
	id := e.RepoID()
	switch e := e.(type) {
	case effect.OpenRepo:
		h, err := d.backend.Open(e.Path)
		if err != nil {
			h = nil
		}
		return msg.RepoOpened{Repo: id, Handle: h, Err: err}, err
	case effect.Clone:
		return d.clone(ctx, e)
	}

	if repo == nil {
		// closed while the effect was queued; nobody is waiting for it
		slog.Debug("dispatcher: dropping effect for closed repository",
			slog.String("effect", spanName(e)), slog.Uint64("repo", uint64(id)))
		return nil, errNoHandle
	}

	switch e := e.(type) {
	case effect.LoadHead:
		b, err := repo.CurrentBranch()
		return msg.HeadLoaded{Repo: id, Branch: b, Err: err}, err
	case effect.LoadUpstream:
		div, err := repo.UpstreamDivergence()
		return msg.UpstreamLoaded{Repo: id, Divergence: div, Err: err}, err
	case effect.LoadBranches:
		bs, err := repo.ListBranches()
		return msg.BranchesLoaded{Repo: id, Branches: bs, Err: err}, err
	case effect.LoadRemoteBranches:
		bs, err := repo.ListRemoteBranches()
		return msg.RemoteBranchesLoaded{Repo: id, Branches: bs, Err: err}, err
	case effect.LoadTags:
		tags, err := repo.ListTags()
		return msg.TagsLoaded{Repo: id, Tags: tags, Err: err}, err
	case effect.LoadRemotes:
		remotes, err := repo.ListRemotes()
		return msg.RemotesLoaded{Repo: id, Remotes: remotes, Err: err}, err
	case effect.LoadStatus:
		st, err := repo.Status()
		return msg.StatusLoaded{Repo: id, Status: st, Err: err}, err
	case effect.LoadLog:
		page, err := repo.LogPage(e.Scope, d.logPageSize, e.Cursor)
		return msg.LogLoaded{Repo: id, Scope: e.Scope, Cursor: e.Cursor, Page: page, Err: err}, err
	case effect.LoadStashes:
		stashes, err := repo.StashList()
		return msg.StashesLoaded{Repo: id, Stashes: stashes, Err: err}, err
	case effect.LoadReflog:
		entries, err := repo.Reflog(reflogLimit)
		return msg.ReflogLoaded{Repo: id, Entries: entries, Err: err}, err
	case effect.LoadWorktrees:
		wts, err := repo.Worktrees()
		return msg.WorktreesLoaded{Repo: id, Worktrees: wts, Err: err}, err
	case effect.LoadSubmodules:
		subs, err := repo.Submodules()
		return msg.SubmodulesLoaded{Repo: id, Submodules: subs, Err: err}, err
	case effect.LoadRebaseState:
		active, err := repo.RebaseInProgress()
		return msg.RebaseStateLoaded{Repo: id, InProgress: active, Err: err}, err
	case effect.LoadMergeMessage:
		message, err := repo.MergeCommitMessage()
		return msg.MergeMessageLoaded{Repo: id, Message: message, Err: err}, err
	case effect.LoadCommitDetails:
		details, err := d.commitDetails(repo, e.Commit)
		return msg.CommitDetailsLoaded{Repo: id, Commit: e.Commit, Details: details, Err: err}, err
	case effect.LoadBlame:
		lines, err := repo.Blame(e.Target.Path, e.Target.Rev)
		return msg.BlameLoaded{Repo: id, Target: e.Target, Lines: lines, Err: err}, err
	case effect.LoadDiff:
		text, err := repo.DiffText(e.Target)
		var parsed domain.Diff
		if err == nil {
			parsed = diff.Parse(e.Target, text)
		}
		return msg.DiffLoaded{Repo: id, Target: e.Target, Diff: parsed, Err: err}, err
	case effect.LoadDiffFile:
		file, err := d.fileText(repo, e.Target)
		return msg.DiffFileLoaded{Repo: id, Target: e.Target, File: file, Err: err}, err
	case effect.LoadDiffFileImage:
		img, err := repo.FileImage(e.Target)
		var value domain.FileDiffImage
		if img != nil {
			value = *img
		} else if err == nil {
			value.Path = e.Target.Path
		}
		return msg.DiffFileImageLoaded{Repo: id, Target: e.Target, Image: value, Err: err}, err
	case effect.RunCommand:
		runID := uuid.NewString()
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("run_id", runID),
			attribute.String("command", e.Command.Kind().String()),
		)
		out, err := runCommand(repo, e.Command)
		out.RunID = runID
		if out.Command == "" {
			out.Command = e.Command.Describe()
		}
		logCommand(id, e.Command, out, err)
		return msg.RepoCommandFinished{Repo: id, Command: e.Command.Kind(), Output: out, Err: err}, err
	default:
		unhandledEffect(e)
		return nil, nil
	}
}

var unhandledEffect = func(e effect.Effect) {
	slog.Error("dispatcher: unhandled effect", slog.String("type", fmt.Sprintf("%T", e)))
}

func (d *dispatcher) clone(ctx context.Context, e effect.Clone) (msg.Msg, error) {
	runID := uuid.NewString()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("url", e.URL),
	)
	out, err := d.backend.Clone(e.URL, e.Dest, func(line string) {
		d.send(msg.CloneProgress{Dest: e.Dest, Line: line})
	})
	out.RunID = runID
	if err != nil {
		slog.Warn("Clone failed", slog.String("url", e.URL), slog.String("run_id", runID), slog.Any("error", err))
	} else {
		slog.Info("Clone finished", slog.String("url", e.URL), slog.String("dest", e.Dest), slog.String("run_id", runID))
	}
	return msg.CloneFinished{Dest: e.Dest, Output: out, Err: err}, err
}

// commitDetails caches by workdir and id. Commits are immutable, so an
// entry only goes stale when it expires.
func (d *dispatcher) commitDetails(repo git.Repository, id domain.CommitID) (domain.CommitDetails, error) {
	key := repo.Spec().Workdir + ":" + string(id)
	if v, ok := d.details.Get(key); ok {
		return v.(domain.CommitDetails), nil
	}
	details, err := repo.CommitDetails(id)
	if err != nil {
		return domain.CommitDetails{}, err
	}
	d.details.Set(key, details, cache.DefaultExpiration)
	return details, nil
}

func (d *dispatcher) fileText(repo git.Repository, target domain.DiffTarget) (domain.FileDiffText, error) {
	file, err := repo.FileText(target)
	if err != nil {
		return domain.FileDiffText{}, err
	}
	value := domain.FileDiffText{Path: target.Path}
	if file != nil {
		value = *file
	}
	if value.Language == "" {
		value.Language = languageOf(value.Path)
	}
	return value, nil
}

// languageOf names the chroma lexer for path, or returns "" when there is
// none.
func languageOf(path string) string {
	lexer := lexers.Match(path)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

func logCommand(repo domain.RepoID, cmd command.Command, out domain.CommandOutput, err error) {
	attrs := []any{
		slog.Uint64("repo", uint64(repo)),
		slog.String("command", out.Command),
		slog.String("run_id", out.RunID),
	}
	if err != nil {
		slog.Warn("Command failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Info("Command finished", append(attrs, slog.String("kind", cmd.Kind().String()))...)
}

// runCommand maps one command onto collaborator calls. Most commands are a
// single call; checking out a remote branch may take three.
func runCommand(repo git.Repository, cmd command.Command) (domain.CommandOutput, error) {
	switch c := cmd.(type) {
	case command.CheckoutBranch:
		return repo.CheckoutBranch(c.Name)
	case command.CheckoutRemoteBranch:
		return checkoutRemoteBranch(repo, c)
	case command.CheckoutCommit:
		return repo.CheckoutCommit(c.Commit)
	case command.CreateBranch:
		out, err := repo.CreateBranch(c.Name, c.Target)
		if err != nil || !c.Checkout {
			return out, err
		}
		return chain(out, func() (domain.CommandOutput, error) { return repo.CheckoutBranch(c.Name) })
	case command.DeleteBranch:
		return repo.DeleteBranch(c.Name, c.Force)
	case command.SetUpstream:
		return repo.SetUpstream(c.Branch, c.Upstream)
	case command.CreateTag:
		return repo.CreateTag(c.Name, c.Target)
	case command.DeleteTag:
		return repo.DeleteTag(c.Name)
	case command.AddRemote:
		return repo.AddRemote(c.Name, c.URL)
	case command.RemoveRemote:
		return repo.RemoveRemote(c.Name)
	case command.StagePaths:
		return repo.StagePaths(c.Paths)
	case command.UnstagePaths:
		return repo.UnstagePaths(c.Paths)
	case command.DiscardWorktreeChanges:
		return repo.DiscardWorktreeChanges(c.Paths)
	case command.StageHunk:
		return repo.ApplyPatch(c.Patch, git.PatchToIndex, false)
	case command.UnstageHunk:
		return repo.ApplyPatch(c.Patch, git.PatchToIndex, true)
	case command.ApplyWorktreePatch:
		return repo.ApplyPatch(c.Patch, git.PatchToWorktree, c.Reverse)
	case command.Commit:
		return repo.Commit(c.Message, c.Amend)
	case command.Fetch:
		return repo.Fetch(c.Prune)
	case command.Pull:
		return repo.Pull(c.Mode)
	case command.Push:
		return repo.Push(c.Force)
	case command.Reset:
		return repo.Reset(c.Target, c.Mode)
	case command.RebaseContinue:
		return repo.RebaseContinue()
	case command.RebaseAbort:
		return repo.RebaseAbort()
	case command.StashCreate:
		return repo.StashCreate(c.Message, c.IncludeUntracked)
	case command.StashApply:
		return repo.StashApply(c.Index)
	case command.StashPop:
		return repo.StashPop(c.Index)
	case command.StashDrop:
		return repo.StashDrop(c.Index)
	case command.CheckoutConflictSide:
		return repo.CheckoutConflictSide(c.Path, c.Side)
	default:
		return domain.CommandOutput{}, fmt.Errorf("unknown command %T", cmd)
	}
}

func checkoutRemoteBranch(repo git.Repository, c command.CheckoutRemoteBranch) (domain.CommandOutput, error) {
	branches, err := repo.ListBranches()
	if err != nil {
		return domain.CommandOutput{Command: c.Describe()}, err
	}
	if slices.ContainsFunc(branches, func(b domain.Branch) bool { return b.Name == c.Name }) {
		return repo.CheckoutBranch(c.Name)
	}
	upstream := c.Remote + "/" + c.Name
	out, err := repo.CreateBranch(c.Name, upstream)
	if err != nil {
		return out, err
	}
	out, err = chain(out, func() (domain.CommandOutput, error) { return repo.SetUpstream(c.Name, upstream) })
	if err != nil {
		return out, err
	}
	return chain(out, func() (domain.CommandOutput, error) { return repo.CheckoutBranch(c.Name) })
}

// chain runs next after prev succeeded and merges their outputs so the
// command log shows every step.
func chain(prev domain.CommandOutput, next func() (domain.CommandOutput, error)) (domain.CommandOutput, error) {
	out, err := next()
	out.Command = joinNonEmpty(" && ", prev.Command, out.Command)
	out.Stdout = joinNonEmpty("", prev.Stdout, out.Stdout)
	out.Stderr = joinNonEmpty("", prev.Stderr, out.Stderr)
	return out, err
}

func joinNonEmpty(sep string, a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}
