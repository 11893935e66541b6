package native

import (
	"errors"
	"io"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/thiagokokada/gitk-core/internal/domain"
	"github.com/thiagokokada/gitk-core/internal/git"
)

func (r *repository) LogPage(scope domain.LogScope, limit int, cursor *domain.LogCursor) (domain.LogPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		return domain.LogPage{}, nil
	}
	opts := &gitlib.LogOptions{Order: gitlib.LogOrderCommitterTime}
	var from domain.CommitID
	skip := 0
	if cursor != nil {
		from = cursor.From
		skip = cursor.Skip
	}
	switch {
	case scope == domain.LogScopeAllBranches:
		opts.All = true
	case from != "":
		opts.From = plumbing.NewHash(string(from))
	default:
		head, err := r.repo.Head()
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return domain.LogPage{}, nil
		}
		if err != nil {
			return domain.LogPage{}, git.WrapBackend("read HEAD", err)
		}
		opts.From = head.Hash()
		from = domain.CommitID(head.Hash().String())
	}
	iter, err := r.repo.Log(opts)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return domain.LogPage{}, nil
		}
		return domain.LogPage{}, git.WrapBackend("read commits", err)
	}
	defer iter.Close()

	var page domain.LogPage
	seen := 0
	for {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.LogPage{}, git.WrapBackend("iterate commits", err)
		}
		seen++
		if seen <= skip {
			continue
		}
		if len(page.Commits) == limit {
			page.Next = &domain.LogCursor{From: from, Skip: skip + limit}
			break
		}
		page.Commits = append(page.Commits, toCommit(c))
	}
	return page, nil
}

func (r *repository) CommitDetails(id domain.CommitID) (domain.CommitDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.commit(id)
	if err != nil {
		return domain.CommitDetails{}, err
	}
	files, err := changedFiles(c)
	if err != nil {
		return domain.CommitDetails{}, git.WrapBackend("diff commit", err)
	}
	return domain.CommitDetails{
		Commit:  toCommit(c),
		Message: c.Message,
		Files:   files,
	}, nil
}

func (r *repository) Reflog(int) ([]domain.ReflogEntry, error) {
	return nil, unsupported("reflog")
}

func (r *repository) commit(id domain.CommitID) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		return nil, git.WrapBackend("resolve "+string(id), err)
	}
	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, git.WrapBackend("read commit "+string(id), err)
	}
	return c, nil
}

func toCommit(c *object.Commit) domain.Commit {
	parents := make([]domain.CommitID, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, domain.CommitID(p.String()))
	}
	summary, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return domain.Commit{
		ID:        domain.CommitID(c.Hash.String()),
		ParentIDs: parents,
		Author:    toSignature(c.Author),
		Committer: toSignature(c.Committer),
		Summary:   strings.TrimSpace(summary),
	}
}

func toSignature(sig object.Signature) domain.Signature {
	return domain.Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

// parentTree returns nil for root commits.
func parentTree(c *object.Commit) (*object.Tree, error) {
	if c.NumParents() == 0 {
		return nil, nil
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	return parent.Tree()
}

func commitChanges(c *object.Commit) (object.Changes, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	ptree, err := parentTree(c)
	if err != nil {
		return nil, err
	}
	return object.DiffTree(ptree, tree)
}

func changedFiles(c *object.Commit) ([]domain.CommitFileChange, error) {
	changes, err := commitChanges(c)
	if err != nil {
		return nil, err
	}
	files := make([]domain.CommitFileChange, 0, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, err
		}
		switch action {
		case merkletrie.Insert:
			files = append(files, domain.CommitFileChange{Path: ch.To.Name, Kind: domain.FileStatusAdded})
		case merkletrie.Delete:
			files = append(files, domain.CommitFileChange{Path: ch.From.Name, Kind: domain.FileStatusDeleted})
		default:
			files = append(files, domain.CommitFileChange{Path: ch.To.Name, Kind: domain.FileStatusModified})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
