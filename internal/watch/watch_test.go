package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/store/msg"
)

func newTestWatcher(t *testing.T) (string, <-chan msg.Msg) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "refs", "heads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	got := make(chan msg.Msg, 16)
	w, err := New(7, domain.RepoSpec{Workdir: root}, 20*time.Millisecond, func(m msg.Msg) { got <- m })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return root, got
}

func receive(t *testing.T, got <-chan msg.Msg) msg.RepoExternallyChanged {
	t.Helper()
	select {
	case m := <-got:
		changed, ok := m.(msg.RepoExternallyChanged)
		require.True(t, ok, "got %T", m)
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
		return msg.RepoExternallyChanged{}
	}
}

func TestWorktreeChange(t *testing.T) {
	root, got := newTestWatcher(t)

	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte{byte('a' + i)}, 0o644))
	}
	assert.Equal(t, msg.RepoExternallyChanged{Repo: 7, Kind: msg.ChangeWorktree}, receive(t, got))
}

func TestGitStateChangeWins(t *testing.T) {
	root, got := newTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "refs", "heads", "main"), []byte("abc\n"), 0o644))
	assert.Equal(t, msg.ChangeGitState, receive(t, got).Kind)
}

func TestGitDirOutsideWorktree(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(t.TempDir(), "worktrees", "feature")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: "+gitDir+"\n"), 0o644))

	got := make(chan msg.Msg, 16)
	w, err := New(7, domain.RepoSpec{Workdir: root, GitDir: gitDir}, 20*time.Millisecond, func(m msg.Msg) { got <- m })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/feature\n"), 0o644))
	assert.Equal(t, msg.ChangeGitState, receive(t, got).Kind)
}

func TestLockFilesAreIgnored(t *testing.T) {
	root, got := newTestWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index.lock"), []byte("x"), 0o644))
	select {
	case m := <-got:
		t.Fatalf("unexpected %#v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	w := &Watcher{root: "/repo", gitDir: "/repo/.git"}
	tests := []struct {
		path string
		want msg.ChangeKind
	}{
		{"/repo/main.go", msg.ChangeWorktree},
		{"/repo/.gitignore", msg.ChangeWorktree},
		{"/repo/.git", msg.ChangeGitState},
		{"/repo/.git/HEAD", msg.ChangeGitState},
		{"/repo/.git/refs/heads/main", msg.ChangeGitState},
		{"/repo/.gitmodules", msg.ChangeWorktree},
	}
	for _, tt := range tests {
		if got := w.classify(filepath.FromSlash(tt.path)); got != tt.want {
			t.Fatalf("classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	linked := &Watcher{root: "/repo", gitDir: "/main/.git/worktrees/repo"}
	if got := linked.classify(filepath.FromSlash("/main/.git/worktrees/repo/HEAD")); got != msg.ChangeGitState {
		t.Fatalf("classify(linked HEAD) = %v, want %v", got, msg.ChangeGitState)
	}
	if got := linked.classify(filepath.FromSlash("/repo/.git")); got != msg.ChangeWorktree {
		t.Fatalf("classify(.git file) = %v, want %v", got, msg.ChangeWorktree)
	}
}
