package git

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	KindIO ErrorKind = iota
	KindNotARepository
	KindUnsupported
	KindBackend
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNotARepository:
		return "not a repository"
	case KindUnsupported:
		return "unsupported"
	default:
		return "backend"
	}
}

var (
	ErrNotARepository = &Error{Kind: KindNotARepository}
	ErrUnsupported    = &Error{Kind: KindUnsupported}
)

// Error is the failure type returned by every collaborator call.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindIO:
		msg = "io error"
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	case KindNotARepository:
		msg = "not a git repository"
		if e.Message != "" {
			msg += ": " + e.Message
		}
	case KindUnsupported:
		msg = "unsupported"
		if e.Message != "" {
			msg += ": " + e.Message
		}
	default:
		msg = e.Message
		if msg == "" && e.Err != nil {
			msg = e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func NotARepository(path string) error {
	return &Error{Kind: KindNotARepository, Message: path}
}

func Unsupported(op, reason string) error {
	return &Error{Kind: KindUnsupported, Op: op, Message: reason}
}

func BackendError(op, message string) error {
	return &Error{Kind: KindBackend, Op: op, Message: message}
}

func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	var gitErr *Error
	if errors.As(err, &gitErr) {
		return err
	}
	return &Error{Kind: KindBackend, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindBackend for foreign errors.
func KindOf(err error) ErrorKind {
	var gitErr *Error
	if errors.As(err, &gitErr) {
		return gitErr.Kind
	}
	return KindBackend
}
