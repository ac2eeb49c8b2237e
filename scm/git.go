package scm

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/sirupsen/logrus"
)

// Git is the Runner backed by go-git.
// It reads the repository directly from the workspace's .git directory.
// Opened repositories are kept for the lifetime of the Git value.
type Git struct {
	mu    sync.Mutex
	repos map[string]*git.Repository
}

var _ Runner = &Git{}

func NewGit() *Git {
	return &Git{
		repos: map[string]*git.Repository{},
	}
}

func (g *Git) ChangedFiles(ctx context.Context, workspace, ref1, ref2 string) ([]string, error) {
	r, err := g.open(workspace)
	if err != nil {
		return nil, err
	}

	c1, err := resolveCommit(r, ref1)
	if err != nil {
		return nil, err
	}

	c2, err := resolveCommit(r, ref2)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("diffing %s (%s) against %s (%s) in %s", ref1, c1.Hash, ref2, c2.Hash, workspace)

	t1, err := c1.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to get tree of %s: %w", ref1, err)
	}

	t2, err := c2.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to get tree of %s: %w", ref2, err)
	}

	changes, err := t1.DiffContext(ctx, t2)
	if err != nil {
		return nil, fmt.Errorf("unable to diff %s and %s: %w", ref1, ref2, err)
	}

	seen := map[string]struct{}{}
	var files []string

	for _, c := range changes {
		// A deleted file only has a From side, an added one only a To side.
		for _, name := range []string{c.To.Name, c.From.Name} {
			if name == "" || !isLocal(name) {
				continue
			}

			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}
			files = append(files, name)
		}
	}

	sort.Strings(files)

	return files, nil
}

func (g *Git) MergeBase(ctx context.Context, workspace, ref1, ref2 string) (string, error) {
	r, err := g.open(workspace)
	if err != nil {
		return "", err
	}

	c1, err := resolveCommit(r, ref1)
	if err != nil {
		return "", err
	}

	c2, err := resolveCommit(r, ref2)
	if err != nil {
		return "", err
	}

	isAncestor, err := c1.IsAncestor(c2)
	if err != nil {
		return "", fmt.Errorf("unable to check ancestry of %s and %s: %w", ref1, ref2, err)
	}

	if isAncestor {
		return c1.Hash.String(), nil
	}

	bases, err := c1.MergeBase(c2)
	if err != nil {
		return "", fmt.Errorf("unable to compute merge-base of %s and %s: %w", ref1, ref2, err)
	}

	if len(bases) == 0 {
		return "", fmt.Errorf("%s and %s have no common ancestor", ref1, ref2)
	}

	return bases[0].Hash.String(), nil
}

func (g *Git) CommitLog(ctx context.Context, workspace, ref1, ref2 string) ([]string, error) {
	r, err := g.open(workspace)
	if err != nil {
		return nil, err
	}

	c1, err := resolveCommit(r, ref1)
	if err != nil {
		return nil, err
	}

	c2, err := resolveCommit(r, ref2)
	if err != nil {
		return nil, err
	}

	excluded := map[plumbing.Hash]struct{}{}

	ancestors, err := r.Log(&git.LogOptions{From: c1.Hash})
	if err != nil {
		return nil, fmt.Errorf("unable to walk history of %s: %w", ref1, err)
	}

	if err := ancestors.ForEach(func(c *object.Commit) error {
		excluded[c.Hash] = struct{}{}
		return ctx.Err()
	}); err != nil {
		return nil, fmt.Errorf("unable to walk history of %s: %w", ref1, err)
	}

	commits, err := r.Log(&git.LogOptions{From: c2.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("unable to walk history of %s: %w", ref2, err)
	}

	var log []string

	if err := commits.ForEach(func(c *object.Commit) error {
		if _, ok := excluded[c.Hash]; ok {
			return nil
		}

		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		log = append(log, c.Hash.String()+" "+subject)

		return ctx.Err()
	}); err != nil {
		return nil, fmt.Errorf("unable to walk history of %s: %w", ref2, err)
	}

	return log, nil
}

func (g *Git) ReadAtRevision(ctx context.Context, workspace, p, ref string) (*string, error) {
	r, err := g.open(workspace)
	if err != nil {
		return nil, err
	}

	c, err := resolveCommit(r, ref)
	if err != nil {
		return nil, err
	}

	name := path.Clean(filepath.ToSlash(p))
	if !isLocal(name) {
		return nil, fmt.Errorf("path %q is outside of the repository", p)
	}

	f, err := c.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to get %s at %s: %w", name, ref, err)
	}

	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s at %s: %w", name, ref, err)
	}

	return &content, nil
}

func (g *Git) open(workspace string) (*git.Repository, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repos == nil {
		g.repos = map[string]*git.Repository{}
	}

	if r, ok := g.repos[workspace]; ok {
		return r, nil
	}

	fs := osfs.New(workspace)
	storage := filesystem.NewStorage(
		osfs.New(filepath.Join(workspace, git.GitDirName)),
		cache.NewObjectLRUDefault(),
	)

	r, err := git.Open(storage, fs)
	if err != nil {
		return nil, fmt.Errorf("unable to open git repository at %s: %w", workspace, err)
	}

	g.repos[workspace] = r

	return r, nil
}

func resolveCommit(r *git.Repository, ref string) (*object.Commit, error) {
	h, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("unable to resolve revision %s: %w", ref, err)
	}

	c, err := r.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("unable to get commit for %s: %w", ref, err)
	}

	return c, nil
}

// isLocal reports whether the slash-separated path stays within the repository root.
func isLocal(p string) bool {
	return filepath.IsLocal(filepath.FromSlash(p))
}
