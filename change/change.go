// Package change describes the change a pipeline phase is processing,
// and works out what the change touched.
package change

import (
	"context"
	"path"
	"strings"

	"github.com/mumoshu/delivery-sugar/config"
	"github.com/mumoshu/delivery-sugar/scm"
)

// Change is one change flowing through a pipeline.
// It must not be modified after New.
type Change struct {
	config.Change

	Workspace config.Workspace

	scm scm.Runner
}

// New returns the change described by cfg.
// The repository is inspected with runner, or with scm.NewGit() when runner is nil.
func New(cfg config.Config, runner scm.Runner) *Change {
	if runner == nil {
		runner = scm.NewGit()
	}

	ch := cfg.Change
	if ch.Remote == "" {
		ch.Remote = config.DefaultRemote
	}

	return &Change{
		Change:    ch,
		Workspace: cfg.Workspace,
		scm:       runner,
	}
}

func (c *Change) EnterpriseSlug() string {
	return c.Enterprise
}

func (c *Change) OrganizationSlug() string {
	return c.Enterprise + "-" + c.Organization
}

func (c *Change) ProjectSlug() string {
	return c.Enterprise + "-" + c.Organization + "-" + c.Project
}

func (c *Change) AcceptanceEnvironment() string {
	return "acceptance-" + c.ProjectSlug() + "-" + c.Pipeline
}

// EnvironmentForCurrentStage is the Chef environment of the stage the change is in.
// Every stage but acceptance is shared by all projects and is named after the stage.
func (c *Change) EnvironmentForCurrentStage() string {
	if c.Stage == config.StageAcceptance {
		return c.AcceptanceEnvironment()
	}

	return c.Stage
}

// ChangedFiles returns the paths, relative to the repository root, of the files the change touched.
//
// Before the change is merged, that is everything on the patchset branch since it forked
// from the pipeline branch. After the merge, it is exactly what the merge commit brought in.
func (c *Change) ChangedFiles(ctx context.Context) ([]string, error) {
	from, to, err := c.revisions(ctx, "~1")
	if err != nil {
		return nil, err
	}

	return c.scm.ChangedFiles(ctx, c.Workspace.Repo, from, to)
}

// ChangedDirs returns every directory containing a changed file, along with their ancestors,
// plus "." when anything changed at all.
//
// With depth 0 or more, directories deeper than depth+1 levels are left out.
// A negative depth keeps them all.
func (c *Change) ChangedDirs(ctx context.Context, depth int) ([]string, error) {
	files, err := c.ChangedFiles(ctx)
	if err != nil {
		return nil, err
	}

	var (
		dirs []string
		seen = map[string]bool{}
	)

	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}

	for _, f := range files {
		for i, d := range ancestors(path.Dir(f)) {
			if depth >= 0 && i > depth {
				break
			}
			add(d)
		}
	}

	if len(dirs) > 0 {
		add(".")
	}

	return dirs, nil
}

// ChangeLog returns the commits the change consists of, newest first,
// each formatted as "<sha> <subject>".
func (c *Change) ChangeLog(ctx context.Context) ([]string, error) {
	from, to, err := c.revisions(ctx, "^")
	if err != nil {
		return nil, err
	}

	return c.scm.CommitLog(ctx, c.Workspace.Repo, from, to)
}

// revisions returns the range of history the change covers.
// parent is the suffix appended to the merge commit to name the pipeline side of the merge.
func (c *Change) revisions(ctx context.Context, parent string) (string, string, error) {
	if c.MergeSHA != "" {
		return c.MergeSHA + parent, c.MergeSHA, nil
	}

	pipeline := c.remoteBranch(c.Pipeline)
	patchset := c.remoteBranch(c.PatchsetBranch)

	mergeBase, err := c.scm.MergeBase(ctx, c.Workspace.Repo, pipeline, patchset)
	if err != nil {
		return "", "", err
	}

	return mergeBase, patchset, nil
}

func (c *Change) remoteBranch(branch string) string {
	return c.Remote + "/" + branch
}

// ancestors returns "a", "a/b", "a/b/c" for "a/b/c", and "." for ".".
func ancestors(dir string) []string {
	if dir == "." {
		return []string{dir}
	}

	elems := strings.Split(dir, "/")

	out := make([]string, 0, len(elems))
	for i := range elems {
		out = append(out, strings.Join(elems[:i+1], "/"))
	}

	return out
}
