package backend

import (
	"reflect"
	"strings"
	"testing"

	"github.com/thiagokokada/gitk-core/internal/domain"
)

func TestParseBlamePorcelain(t *testing.T) {
	t.Parallel()

	const (
		a = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		b = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	)
	in := strings.Join([]string{
		a + " 1 1 2",
		"author Alice",
		"author-mail <alice@example.com>",
		"author-time 1700000000",
		"summary first",
		"filename f.txt",
		"\tline one",
		a + " 2 2",
		"\tline two",
		b + " 3 3 1",
		"author Bob",
		"author-time 1700000100",
		"filename f.txt",
		"\tline three",
		"",
	}, "\n")

	got := parseBlamePorcelain(in)
	want := []domain.BlameLine{
		{Commit: a, Author: "Alice", When: 1700000000, LineNo: 1, Content: "line one"},
		{Commit: a, Author: "Alice", When: 1700000000, LineNo: 2, Content: "line two"},
		{Commit: b, Author: "Bob", When: 1700000100, LineNo: 3, Content: "line three"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseBlamePorcelain() = %+v, want %+v", got, want)
	}
}

func TestDescribeCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"--no-optional-locks", "status", "--porcelain=v2"}, want: "git status --porcelain=v2"},
		{args: []string{"commit", "-m", "two words"}, want: `git commit -m "two words"`},
		{args: []string{"stash", "push", "-m", ""}, want: `git stash push -m ""`},
	}
	for _, tt := range tests {
		if got := describeCommand(tt.args); got != tt.want {
			t.Fatalf("describeCommand(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestScanProgressLines(t *testing.T) {
	t.Parallel()

	data := []byte("Receiving objects:  50%\rReceiving objects: 100%\ndone")
	var got []string
	for len(data) > 0 {
		adv, tok, err := scanProgressLines(data, true)
		if err != nil {
			t.Fatalf("scanProgressLines: %v", err)
		}
		got = append(got, string(tok))
		data = data[adv:]
	}
	want := []string{"Receiving objects:  50%", "Receiving objects: 100%", "done"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}
