package backend

import (
	"reflect"
	"strings"
	"testing"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

func TestParseRefsFromShowRef(t *testing.T) {
	t.Parallel()

	const (
		commit1 = "1111111111111111111111111111111111111111"
		commit2 = "2222222222222222222222222222222222222222"
		tagObj  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	)

	in := strings.Join([]string{
		commit1 + " refs/heads/main",
		commit1 + " refs/remotes/origin/main",
		commit1 + " refs/remotes/origin/HEAD",
		commit2 + " refs/tags/v1.0",
		tagObj + " refs/tags/v2.0",
		commit1 + " refs/tags/v2.0^{}",
		commit1 + " refs/stash",
		"",
	}, "\n")

	got, err := parseRefsFromShowRef(in)
	if err != nil {
		t.Fatalf("parseRefsFromShowRef() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("unexpected ref count: got %d want 5", len(got))
	}

	assertHasRef(t, got, ref{hash: commit1, kind: refKindBranch, name: "main"})
	assertHasRef(t, got, ref{hash: commit1, kind: refKindRemoteBranch, name: "origin/main"})
	assertHasRef(t, got, ref{hash: commit1, kind: refKindRemoteBranch, name: "origin/HEAD"})
	assertHasRef(t, got, ref{hash: commit2, kind: refKindTag, name: "v1.0"})
	// annotated tags resolve to the peeled commit
	assertHasRef(t, got, ref{hash: commit1, kind: refKindTag, name: "v2.0"})
}

func TestParseRefsFromShowRef_InvalidLine(t *testing.T) {
	t.Parallel()

	if _, err := parseRefsFromShowRef("refs/heads/main\n"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseBranches(t *testing.T) {
	t.Parallel()

	in := "main\x001111\x00origin/main\x00*\nfeature\x002222\x00\x00 \n\n"
	got := parseBranches(in)
	want := []domain.Branch{
		{Name: "main", Target: "1111", Upstream: "origin/main", Current: true},
		{Name: "feature", Target: "2222"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseBranches() = %+v, want %+v", got, want)
	}
}

func TestParseRemotes(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"origin\thttps://example.com/a.git (fetch)",
		"origin\thttps://example.com/a.git (push)",
		"upstream\tgit@example.com:b.git (fetch)",
		"upstream\tgit@example.com:b-push.git (push)",
	}, "\n")
	got := parseRemotes(in)
	want := []domain.Remote{
		{Name: "origin", URL: "https://example.com/a.git"},
		{Name: "upstream", URL: "git@example.com:b.git"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseRemotes() = %+v, want %+v", got, want)
	}
}

func assertHasRef(t *testing.T, refs []ref, want ref) {
	t.Helper()
	for _, got := range refs {
		if got == want {
			return
		}
	}
	t.Fatalf("missing ref: %+v (got=%+v)", want, refs)
}
