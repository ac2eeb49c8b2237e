package change

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mumoshu/delivery-sugar/cookbook"
)

const cookbooksDir = "cookbooks"

var cookbookPathRegexp = regexp.MustCompile(`^cookbooks/([a-zA-Z0-9_-]*)`)

// ChangedCookbooks returns the cookbooks the change touched, in the order they were first seen.
//
// A changed file under cookbooks/<name>/ makes cookbooks/<name> a candidate.
// The repository root is a candidate whenever anything changed.
// Candidates without metadata are skipped.
func (c *Change) ChangedCookbooks(ctx context.Context) ([]*cookbook.Cookbook, error) {
	files, err := c.ChangedFiles(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, f := range files {
		if m := cookbookPathRegexp.FindString(f); m != "" {
			candidates = append(candidates, m)
		}
	}

	if len(files) > 0 {
		candidates = append(candidates, ".")
	}

	var (
		cookbooks []*cookbook.Cookbook
		loaded    = map[string]bool{}
	)

	for _, rel := range candidates {
		if loaded[rel] {
			continue
		}
		loaded[rel] = true

		cb, err := cookbook.Load(filepath.Join(c.Workspace.Repo, rel))
		if err != nil {
			return nil, err
		}

		cookbooks = appendUnique(cookbooks, cb)
	}

	return cookbooks, nil
}

// AllProjectCookbooks returns the repository root when it is a cookbook,
// followed by every cookbook directly under cookbooks/.
func (c *Change) AllProjectCookbooks() ([]*cookbook.Cookbook, error) {
	var cookbooks []*cookbook.Cookbook

	root, err := cookbook.Load(c.Workspace.Repo)
	if err != nil {
		return nil, err
	}
	cookbooks = appendUnique(cookbooks, root)

	dir := filepath.Join(c.Workspace.Repo, cookbooksDir)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return cookbooks, nil
	} else if err != nil {
		return nil, err
	}

	for _, e := range entries {
		cb, err := cookbook.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		cookbooks = appendUnique(cookbooks, cb)
	}

	return cookbooks, nil
}

// CookbookMetadata loads the cookbook at path as it was at revision,
// or as it is on disk when revision is empty.
// A relative path is relative to the repository root.
//
// It returns nil, nil when path was not a cookbook at that revision.
func (c *Change) CookbookMetadata(ctx context.Context, path, revision string) (*cookbook.Cookbook, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Workspace.Repo, path)
	}

	if revision == "" {
		return cookbook.Load(path)
	}

	return cookbook.LoadWithReader(path, c.readAtRevision(ctx, revision))
}

func (c *Change) readAtRevision(ctx context.Context, revision string) cookbook.ReadFileFunc {
	return func(p string) ([]byte, error) {
		repo, err := filepath.Abs(c.Workspace.Repo)
		if err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(repo, p)
		if err != nil {
			return nil, err
		}

		content, err := c.scm.ReadAtRevision(ctx, c.Workspace.Repo, filepath.ToSlash(rel), revision)
		if err != nil {
			return nil, err
		}

		if content == nil {
			return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
		}

		return []byte(*content), nil
	}
}

func appendUnique(cookbooks []*cookbook.Cookbook, cb *cookbook.Cookbook) []*cookbook.Cookbook {
	if cb == nil {
		return cookbooks
	}

	for _, existing := range cookbooks {
		if existing.Equal(*cb) {
			return cookbooks
		}
	}

	return append(cookbooks, cb)
}
