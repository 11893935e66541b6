package git

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "io", err: IOError("read", os.ErrNotExist), want: "read: io error: file does not exist"},
		{name: "not a repo", err: NotARepository("/tmp/x"), want: "not a git repository: /tmp/x"},
		{name: "unsupported", err: Unsupported("stash", "not implemented by go-git"), want: "stash: unsupported: not implemented by go-git"},
		{name: "backend", err: BackendError("git push", "rejected"), want: "git push: rejected"},
		{name: "wrapped foreign", err: WrapBackend("git fetch", fmt.Errorf("boom")), want: "git fetch: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("open: %w", NotARepository("/tmp/x"))
	if !errors.Is(err, ErrNotARepository) {
		t.Fatalf("errors.Is(%v, ErrNotARepository) = false, want true", err)
	}
	if errors.Is(err, ErrUnsupported) {
		t.Fatalf("errors.Is(%v, ErrUnsupported) = true, want false", err)
	}
	if got := KindOf(err); got != KindNotARepository {
		t.Fatalf("KindOf() = %v, want %v", got, KindNotARepository)
	}
	if got := KindOf(errors.New("plain")); got != KindBackend {
		t.Fatalf("KindOf(plain) = %v, want %v", got, KindBackend)
	}
}

func TestWrapBackendKeepsTypedErrors(t *testing.T) {
	t.Parallel()

	orig := Unsupported("blame", "no")
	if got := WrapBackend("x", orig); got != orig {
		t.Fatalf("WrapBackend() = %v, want original %v", got, orig)
	}
	if WrapBackend("x", nil) != nil {
		t.Fatalf("WrapBackend(nil) != nil")
	}
}
