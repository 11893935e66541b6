package native

import (
	"errors"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (r *repository) CurrentBranch() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", git.WrapBackend("read HEAD", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	return "HEAD", nil
}

func (r *repository) UpstreamDivergence() (*domain.UpstreamDivergence, error) {
	return nil, unsupported("upstream divergence")
}

func (r *repository) ListBranches() ([]domain.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, git.WrapBackend("read config", err)
	}
	var current string
	if head, err := r.repo.Reference(plumbing.HEAD, false); err == nil && head.Type() == plumbing.SymbolicReference {
		current = head.Target().Short()
	}
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, git.WrapBackend("list branches", err)
	}
	defer iter.Close()
	var branches []domain.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		b := domain.Branch{
			Name:    name,
			Target:  domain.CommitID(ref.Hash().String()),
			Current: name == current,
		}
		if bc, ok := cfg.Branches[name]; ok && bc.Remote != "" && bc.Merge != "" {
			b.Upstream = bc.Remote + "/" + bc.Merge.Short()
		}
		branches = append(branches, b)
		return nil
	})
	if err != nil {
		return nil, git.WrapBackend("list branches", err)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

func (r *repository) ListRemoteBranches() ([]domain.RemoteBranch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iter, err := r.repo.References()
	if err != nil {
		return nil, git.WrapBackend("list references", err)
	}
	defer iter.Close()
	var out []domain.RemoteBranch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() || ref.Type() != plumbing.HashReference {
			return nil
		}
		remote, name, ok := strings.Cut(ref.Name().Short(), "/")
		if !ok || name == "HEAD" {
			return nil
		}
		out = append(out, domain.RemoteBranch{Remote: remote, Name: name, Target: domain.CommitID(ref.Hash().String())})
		return nil
	})
	if err != nil {
		return nil, git.WrapBackend("list references", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

func (r *repository) ListTags() ([]domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, git.WrapBackend("list tags", err)
	}
	defer iter.Close()
	var tags []domain.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if peeled, ok := r.peelTagCommitHash(hash); ok {
			hash = peeled
		}
		tags = append(tags, domain.Tag{Name: ref.Name().Short(), Target: domain.CommitID(hash.String())})
		return nil
	})
	if err != nil {
		return nil, git.WrapBackend("list tags", err)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// peelTagCommitHash follows annotated tag objects down to the commit they
// name. Lightweight tags already point at the commit.
func (r *repository) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	if _, err := r.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := r.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (r *repository) ListRemotes() ([]domain.Remote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, git.WrapBackend("list remotes", err)
	}
	out := make([]domain.Remote, 0, len(remotes))
	for _, rem := range remotes {
		cfg := rem.Config()
		var url string
		if len(cfg.URLs) > 0 {
			url = cfg.URLs[0]
		}
		out = append(out, domain.Remote{Name: cfg.Name, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *repository) CreateBranch(name string, target string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("branch " + name + " " + target)
	if name == "" {
		return failed(out, errors.New("branch name is empty"))
	}
	if target == "" {
		target = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(target))
	if err != nil {
		return failed(out, err)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err == nil {
		return failed(out, errors.New("a branch named '"+name+"' already exists"))
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, *hash)); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) DeleteBranch(name string, force bool) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("branch -d " + name)
	if force {
		out = output("branch -D " + name)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err != nil {
		return failed(out, err)
	}
	if err := r.repo.Storer.RemoveReference(refName); err != nil {
		return failed(out, err)
	}
	// the config entry is optional; most branches never had one
	if err := r.repo.DeleteBranch(name); err != nil && !errors.Is(err, gitlib.ErrBranchNotFound) {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) SetUpstream(branch, upstream string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("branch --set-upstream-to " + upstream + " " + branch)
	remote, name, ok := strings.Cut(upstream, "/")
	if !ok || remote == "" || name == "" {
		return failed(out, errors.New("upstream must be <remote>/<branch>"))
	}
	cfg, err := r.repo.Config()
	if err != nil {
		return failed(out, err)
	}
	bc, ok := cfg.Branches[branch]
	if !ok {
		bc = &config.Branch{Name: branch}
		cfg.Branches[branch] = bc
	}
	bc.Remote = remote
	bc.Merge = plumbing.NewBranchReferenceName(name)
	if err := r.repo.SetConfig(cfg); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) CreateTag(name string, target domain.CommitID) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("tag " + name + " " + string(target))
	rev := string(target)
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return failed(out, err)
	}
	if _, err := r.repo.CreateTag(name, *hash, nil); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) DeleteTag(name string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("tag -d " + name)
	if err := r.repo.DeleteTag(name); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) AddRemote(name, url string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("remote add " + name + " " + url)
	if _, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return failed(out, err)
	}
	return out, nil
}

func (r *repository) RemoveRemote(name string) (domain.CommandOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := output("remote remove " + name)
	if err := r.repo.DeleteRemote(name); err != nil {
		return failed(out, err)
	}
	return out, nil
}
