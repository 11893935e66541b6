package domain

type Branch struct {
	Name     string
	Target   CommitID
	Upstream string
	Current  bool
}

type RemoteBranch struct {
	Remote string
	Name   string
	Target CommitID
}

// FullName returns the remote-qualified name, e.g. origin/main.
func (b RemoteBranch) FullName() string {
	return b.Remote + "/" + b.Name
}

type Tag struct {
	Name   string
	Target CommitID
}

type Remote struct {
	Name string
	URL  string
}
