// Package release stores the releases of project applications
// and the versions pinned on each environment.
//
// A release is a data bag item named after the application and its version,
// stored in a data bag named after the project.
// A pin is an entry of the "applications" override attribute of an environment.
package release

import (
	"context"
	"errors"
	"os"

	"github.com/mumoshu/delivery-sugar/envvar"
)

// ErrEnvironmentNotFound is returned by PinnedVersion when the environment does not exist.
var ErrEnvironmentNotFound = errors.New("environment not found")

// Item is the content of a release. It always has an "id".
type Item map[string]interface{}

func (i Item) ID() string {
	id, _ := i["id"].(string)
	return id
}

type Store interface {
	// SaveRelease creates or replaces the release item in the project's data bag,
	// creating the data bag when needed.
	SaveRelease(ctx context.Context, project string, item Item) error

	// LoadRelease returns nil, nil when the release does not exist.
	LoadRelease(ctx context.Context, project, id string) (Item, error)

	// PinVersion pins the application to the version on the environment,
	// creating the environment when needed.
	PinVersion(ctx context.Context, environment, app, version string) error

	// PinnedVersion returns nil, nil when the application is not pinned on the environment.
	PinnedVersion(ctx context.Context, environment, app string) (*string, error)
}

// NewStore returns a YAMLFileStore when envvar.ReleaseStateFilePath is set.
// Otherwise, it returns a ChefServerStore backed by server.
func NewStore(server ChefServer) Store {
	if path := os.Getenv(envvar.ReleaseStateFilePath); path != "" {
		return &YAMLFileStore{
			Path: path,
		}
	}

	return &ChefServerStore{
		Server: server,
	}
}
