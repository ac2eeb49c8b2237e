// Package scm inspects the history of the project repository checked out in a workspace.
package scm

import (
	"context"
)

// Runner is the interface to the source-control system of the workspace.
// There is only one implementation today, Git.
//
// All the methods operate against the working tree rooted at workspace.
type Runner interface {
	// ChangedFiles returns the repository-relative paths of the files
	// that differ between ref1 and ref2.
	ChangedFiles(ctx context.Context, workspace, ref1, ref2 string) ([]string, error)

	// MergeBase returns the best common ancestor of ref1 and ref2.
	MergeBase(ctx context.Context, workspace, ref1, ref2 string) (string, error)

	// CommitLog returns the commits reachable from ref2 but not from ref1,
	// newest first, each formatted as "<sha> <subject>".
	CommitLog(ctx context.Context, workspace, ref1, ref2 string) ([]string, error)

	// ReadAtRevision returns the content of path as of ref.
	// It returns nil without an error if path did not exist at ref.
	ReadAtRevision(ctx context.Context, workspace, path, ref string) (*string, error)
}
