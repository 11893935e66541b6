package backend

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	if err := ensureMinGitVersion(); err != nil {
		t.Skipf("git too old: %v", err)
	}
}

func runGitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// createTestRepo makes a repository with n commits touching file.txt.
func createTestRepo(t *testing.T, n int) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	runGitCmd(t, dir, "init", "-q", "-b", "main")
	runGitCmd(t, dir, "config", "user.name", "Test")
	runGitCmd(t, dir, "config", "user.email", "test@example.com")
	runGitCmd(t, dir, "config", "commit.gpgsign", "false")
	var content strings.Builder
	for i := range n {
		content.WriteString("line " + string(rune('a'+i)) + "\n")
		writeFile(t, dir, "file.txt", content.String())
		runGitCmd(t, dir, "add", "file.txt")
		runGitCmd(t, dir, "commit", "-q", "-m", "commit "+string(rune('a'+i)))
	}
	return dir
}

func openTestRepo(t *testing.T, dir string) git.Repository {
	t.Helper()
	repo, err := NewCLI().Open(dir)
	if err != nil {
		t.Fatalf("Open(%q): %v", dir, err)
	}
	return repo
}

func TestOpenNotARepository(t *testing.T) {
	t.Parallel()
	requireGit(t)

	_, err := NewCLI().Open(t.TempDir())
	if !errors.Is(err, git.ErrNotARepository) {
		t.Fatalf("Open() error = %v, want ErrNotARepository", err)
	}
}

func TestLogPagePaginates(t *testing.T) {
	t.Parallel()
	dir := createTestRepo(t, 5)
	repo := openTestRepo(t, dir)

	first, err := repo.LogPage(domain.LogScopeCurrentBranch, 3, nil)
	if err != nil {
		t.Fatalf("LogPage: %v", err)
	}
	if len(first.Commits) != 3 || first.Next == nil {
		t.Fatalf("first page = %d commits, next=%v; want 3 and a cursor", len(first.Commits), first.Next)
	}
	if first.Commits[0].Summary != "commit e" {
		t.Fatalf("newest summary = %q, want %q", first.Commits[0].Summary, "commit e")
	}
	second, err := repo.LogPage(domain.LogScopeCurrentBranch, 3, first.Next)
	if err != nil {
		t.Fatalf("LogPage(next): %v", err)
	}
	if len(second.Commits) != 2 || second.Next != nil {
		t.Fatalf("second page = %d commits, next=%v; want 2 and no cursor", len(second.Commits), second.Next)
	}
	if second.Commits[1].Summary != "commit a" {
		t.Fatalf("oldest summary = %q, want %q", second.Commits[1].Summary, "commit a")
	}

	details, err := repo.CommitDetails(first.Commits[0].ID)
	if err != nil {
		t.Fatalf("CommitDetails: %v", err)
	}
	if len(details.Files) != 1 || details.Files[0].Path != "file.txt" {
		t.Fatalf("CommitDetails files = %+v", details.Files)
	}
}

func TestStatusStageAndApplyPatch(t *testing.T) {
	t.Parallel()
	dir := createTestRepo(t, 2)
	repo := openTestRepo(t, dir)

	writeFile(t, dir, "file.txt", "line a\nline B\n")
	writeFile(t, dir, "new.txt", "fresh\n")

	status, err := repo.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Staged) != 0 || len(status.Unstaged) != 2 {
		t.Fatalf("Status() = %+v", status)
	}

	diffText, err := repo.DiffText(domain.WorkingTreeTarget("file.txt", domain.DiffAreaUnstaged))
	if err != nil {
		t.Fatalf("DiffText: %v", err)
	}
	if !strings.Contains(diffText, "-line b") || !strings.Contains(diffText, "+line B") {
		t.Fatalf("DiffText() = %q", diffText)
	}
	untracked, err := repo.DiffText(domain.WorkingTreeTarget("new.txt", domain.DiffAreaUnstaged))
	if err != nil {
		t.Fatalf("DiffText(untracked): %v", err)
	}
	if !strings.Contains(untracked, "+fresh") {
		t.Fatalf("DiffText(untracked) = %q", untracked)
	}

	out, err := repo.ApplyPatch(diffText, git.PatchToIndex, false)
	if err != nil {
		t.Fatalf("ApplyPatch: %v (%s)", err, out.Stderr)
	}
	if out.Command != "git apply --whitespace=nowarn --cached -" {
		t.Fatalf("ApplyPatch command = %q", out.Command)
	}
	staged, err := repo.DiffText(domain.WorkingTreeTarget("file.txt", domain.DiffAreaStaged))
	if err != nil {
		t.Fatalf("DiffText(staged): %v", err)
	}
	if !strings.Contains(staged, "+line B") {
		t.Fatalf("staged diff = %q", staged)
	}

	if _, err := repo.UnstagePaths([]string{"file.txt"}); err != nil {
		t.Fatalf("UnstagePaths: %v", err)
	}
	if _, err := repo.StagePaths([]string{"new.txt"}); err != nil {
		t.Fatalf("StagePaths: %v", err)
	}
	status, err = repo.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := domain.RepoStatus{
		Staged:   []domain.FileStatus{{Path: "new.txt", Kind: domain.FileStatusAdded}},
		Unstaged: []domain.FileStatus{{Path: "file.txt", Kind: domain.FileStatusModified}},
	}
	if len(status.Staged) != 1 || status.Staged[0] != want.Staged[0] || len(status.Unstaged) != 1 || status.Unstaged[0] != want.Unstaged[0] {
		t.Fatalf("Status() = %+v, want %+v", status, want)
	}

	text, err := repo.FileText(domain.WorkingTreeTarget("file.txt", domain.DiffAreaUnstaged))
	if err != nil {
		t.Fatalf("FileText: %v", err)
	}
	if text.Old == nil || *text.Old != "line a\nline b\n" || text.New == nil || *text.New != "line a\nline B\n" {
		t.Fatalf("FileText() = %+v", text)
	}

	if _, err := repo.Commit("stage new file", false); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := repo.DiscardWorktreeChanges([]string{"file.txt"}); err != nil {
		t.Fatalf("DiscardWorktreeChanges: %v", err)
	}
	status, err = repo.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Clean() {
		t.Fatalf("Status() = %+v, want clean", status)
	}
}

func TestBranchesTagsAndBlame(t *testing.T) {
	t.Parallel()
	dir := createTestRepo(t, 2)
	repo := openTestRepo(t, dir)

	if _, err := repo.CreateBranch("feature", ""); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if _, err := repo.CreateTag("v1", ""); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	branches, err := repo.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 2 || branches[0].Name != "feature" || !branches[1].Current {
		t.Fatalf("ListBranches() = %+v", branches)
	}
	if _, err := repo.CheckoutBranch("feature"); err != nil {
		t.Fatalf("CheckoutBranch: %v", err)
	}
	current, err := repo.CurrentBranch()
	if err != nil || current != "feature" {
		t.Fatalf("CurrentBranch() = %q, %v; want feature", current, err)
	}
	tags, err := repo.ListTags()
	if err != nil || len(tags) != 1 || tags[0].Name != "v1" {
		t.Fatalf("ListTags() = %+v, %v", tags, err)
	}

	blame, err := repo.Blame("file.txt", "")
	if err != nil {
		t.Fatalf("Blame: %v", err)
	}
	if len(blame) != 2 || blame[1].Content != "line b" || blame[0].Author != "Test" {
		t.Fatalf("Blame() = %+v", blame)
	}

	if _, err := repo.CheckoutBranch("-x"); err == nil {
		t.Fatal("CheckoutBranch(-x) succeeded, want error")
	}
	_, err = repo.DeleteBranch("does-not-exist", false)
	if git.KindOf(err) != git.KindBackend {
		t.Fatalf("DeleteBranch() error kind = %v, want backend", git.KindOf(err))
	}
}

func TestStashRoundTrip(t *testing.T) {
	t.Parallel()
	dir := createTestRepo(t, 1)
	repo := openTestRepo(t, dir)

	writeFile(t, dir, "file.txt", "changed\n")
	if _, err := repo.StashCreate("wip", false); err != nil {
		t.Fatalf("StashCreate: %v", err)
	}
	stashes, err := repo.StashList()
	if err != nil || len(stashes) != 1 || !strings.Contains(stashes[0].Message, "wip") {
		t.Fatalf("StashList() = %+v, %v", stashes, err)
	}
	if _, err := repo.StashPop(0); err != nil {
		t.Fatalf("StashPop: %v", err)
	}
	stashes, err = repo.StashList()
	if err != nil || len(stashes) != 0 {
		t.Fatalf("StashList() after pop = %+v, %v", stashes, err)
	}
}
