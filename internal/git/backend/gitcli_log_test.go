package backend

import (
	"bytes"
	"testing"
	"time"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

func TestParseGitLogRecord(t *testing.T) {
	t.Parallel()

	rec := bytes.Join([][]byte{
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb cccccccccccccccccccccccccccccccccccccccc"),
		[]byte("Alice"),
		[]byte("alice@example.com"),
		[]byte("2024-01-02T03:04:05Z"),
		[]byte("Bob"),
		[]byte("bob@example.com"),
		[]byte("2024-01-02T03:05:06Z"),
		[]byte("Subject line\n\nBody line\n"),
	}, []byte("\n"))

	got, err := parseGitLogRecord(rec)
	if err != nil {
		t.Fatalf("parseGitLogRecord: %v", err)
	}
	if got.ID != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("ID = %q", got.ID)
	}
	wantParents := []domain.CommitID{
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccccccccccccccccccccc",
	}
	if len(got.ParentIDs) != 2 || got.ParentIDs[0] != wantParents[0] || got.ParentIDs[1] != wantParents[1] {
		t.Fatalf("ParentIDs = %#v, want %#v", got.ParentIDs, wantParents)
	}
	if got.Author.Name != "Alice" || got.Author.Email != "alice@example.com" {
		t.Fatalf("Author = %#v", got.Author)
	}
	if got.Committer.Name != "Bob" || got.Committer.Email != "bob@example.com" {
		t.Fatalf("Committer = %#v", got.Committer)
	}
	if !got.Author.When.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("Author.When = %v", got.Author.When)
	}
	if got.Summary != "Subject line" {
		t.Fatalf("Summary = %q, want %q", got.Summary, "Subject line")
	}
	if got.Message != "Subject line\n\nBody line\n" {
		t.Fatalf("Message = %q", got.Message)
	}
}

func TestParseGitLogRecord_EmptyMessage(t *testing.T) {
	t.Parallel()

	rec := []byte("h\n\nan\nae\n2024-01-02T03:04:05Z\ncn\nce\n2024-01-02T03:04:05Z\n")
	got, err := parseGitLogRecord(rec)
	if err != nil {
		t.Fatalf("parseGitLogRecord: %v", err)
	}
	if got.Message != "" || got.Summary != "" {
		t.Fatalf("expected empty message, got %q / %q", got.Message, got.Summary)
	}
	if got.ParentIDs != nil {
		t.Fatalf("ParentIDs = %#v, want nil", got.ParentIDs)
	}
}

func TestParseGitLogRecord_ShortRecord(t *testing.T) {
	t.Parallel()

	if _, err := parseGitLogRecord([]byte("only\ntwo\nlines")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseNameStatusZ(t *testing.T) {
	t.Parallel()

	in := "M\x00a.txt\x00A\x00new.txt\x00D\x00gone.txt\x00R100\x00old.txt\x00moved.txt\x00"
	got := parseNameStatusZ(in)
	want := []domain.CommitFileChange{
		{Path: "a.txt", Kind: domain.FileStatusModified},
		{Path: "new.txt", Kind: domain.FileStatusAdded},
		{Path: "gone.txt", Kind: domain.FileStatusDeleted},
		{Path: "moved.txt", Kind: domain.FileStatusRenamed},
	}
	if len(got) != len(want) {
		t.Fatalf("parseNameStatusZ() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parseNameStatusZ()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
