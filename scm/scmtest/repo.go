// Package scmtest builds throwaway git repositories for tests.
package scmtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// Repo is a git repository in a temporary directory.
type Repo struct {
	Dir string

	t    *testing.T
	repo *git.Repository
	wt   *git.Worktree
	now  time.Time
}

func NewRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()

	r, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := r.Worktree()
	require.NoError(t, err)

	return &Repo{
		Dir:  dir,
		t:    t,
		repo: r,
		wt:   wt,
		now:  time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Commit writes files, removes the paths in deletes, and commits the result
// on the currently checked out branch.
func (r *Repo) Commit(message string, files map[string]string, deletes ...string) plumbing.Hash {
	r.t.Helper()

	for name, content := range files {
		p := filepath.Join(r.Dir, filepath.FromSlash(name))
		require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(r.t, os.WriteFile(p, []byte(content), 0644))

		_, err := r.wt.Add(name)
		require.NoError(r.t, err)
	}

	for _, name := range deletes {
		_, err := r.wt.Remove(name)
		require.NoError(r.t, err)
	}

	// Commits get distinct, increasing timestamps so that log order is deterministic.
	r.now = r.now.Add(time.Minute)

	h, err := r.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test author",
			Email: "test@example.com",
			When:  r.now,
		},
		AllowEmptyCommits: true,
	})
	require.NoError(r.t, err)

	return h
}

// Checkout switches to the named branch, creating it from HEAD when create is true.
func (r *Repo) Checkout(branch string, create bool) {
	r.t.Helper()

	require.NoError(r.t, r.wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	}))
}

// Head returns the short name of the checked out branch.
func (r *Repo) Head() string {
	r.t.Helper()

	ref, err := r.repo.Head()
	require.NoError(r.t, err)

	return ref.Name().Short()
}

// SetRemoteRef points refs/remotes/<remote>/<branch> at h,
// as if the branch had been fetched from remote.
func (r *Repo) SetRemoteRef(remote, branch string, h plumbing.Hash) {
	r.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, branch), h)
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

// Merge records a merge commit of the given branch into the checked out branch,
// taking the files as they are on the other branch.
func (r *Repo) Merge(message string, other plumbing.Hash, files map[string]string) plumbing.Hash {
	r.t.Helper()

	head, err := r.repo.Head()
	require.NoError(r.t, err)

	for name, content := range files {
		p := filepath.Join(r.Dir, filepath.FromSlash(name))
		require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(r.t, os.WriteFile(p, []byte(content), 0644))

		_, err := r.wt.Add(name)
		require.NoError(r.t, err)
	}

	r.now = r.now.Add(time.Minute)

	h, err := r.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test author",
			Email: "test@example.com",
			When:  r.now,
		},
		Parents:           []plumbing.Hash{head.Hash(), other},
		AllowEmptyCommits: true,
	})
	require.NoError(r.t, err)

	return h
}
