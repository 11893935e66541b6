package domain

import "strings"

// CommandOutput is what a mutating collaborator call reports, whether it
// succeeded or not.
type CommandOutput struct {
	RunID    string
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (o CommandOutput) Combined() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(o.Stdout, "\n"))
	if o.Stderr != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(o.Stderr, "\n"))
	}
	return b.String()
}

type PullMode uint8

const (
	PullDefault PullMode = iota
	PullFastForwardOnly
	PullRebase
	PullMerge
)

type ResetMode uint8

const (
	ResetSoft ResetMode = iota
	ResetMixed
	ResetHard
)

func (m ResetMode) Flag() string {
	switch m {
	case ResetSoft:
		return "--soft"
	case ResetHard:
		return "--hard"
	default:
		return "--mixed"
	}
}

type ConflictSide uint8

const (
	ConflictOurs ConflictSide = iota
	ConflictTheirs
)

func (s ConflictSide) Flag() string {
	if s == ConflictTheirs {
		return "--theirs"
	}
	return "--ours"
}
