package release

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

type YAMLFileStore struct {
	// Path is the path to the YAML file that stores the releases and pins.
	//
	// The YAML file must contain a State.
	// A missing file is read as an empty State, and is created on the first write.
	Path string
}

var _ Store = &YAMLFileStore{}

func (s *YAMLFileStore) SaveRelease(ctx context.Context, project string, item Item) error {
	if item.ID() == "" {
		return errors.Errorf("release for %s has no id", project)
	}

	state, err := s.getState(ctx)
	if err != nil {
		return err
	}

	state.SaveRelease(project, item)

	return s.setState(ctx, state)
}

func (s *YAMLFileStore) LoadRelease(ctx context.Context, project, id string) (Item, error) {
	state, err := s.getState(ctx)
	if err != nil {
		return nil, err
	}

	return state.LoadRelease(project, id), nil
}

func (s *YAMLFileStore) PinVersion(ctx context.Context, environment, app, version string) error {
	state, err := s.getState(ctx)
	if err != nil {
		return err
	}

	state.PinVersion(environment, app, version)

	return s.setState(ctx, state)
}

func (s *YAMLFileStore) PinnedVersion(ctx context.Context, environment, app string) (*string, error) {
	state, err := s.getState(ctx)
	if err != nil {
		return nil, err
	}

	env, ok := state.Environments[environment]
	if !ok {
		return nil, errors.Wrapf(ErrEnvironmentNotFound, "%s", environment)
	}

	v, ok := env.Applications[app]
	if !ok {
		return nil, nil
	}

	return &v, nil
}

func (s *YAMLFileStore) getState(ctx context.Context) (*State, error) {
	yamlData, err := os.ReadFile(s.Path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	ds := &yamlDataStore{Data: yamlData}
	state, err := ds.getState(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", s.Path)
	}

	return state, nil
}

func (s *YAMLFileStore) setState(ctx context.Context, state *State) error {
	ds := &yamlDataStore{}
	if err := ds.setState(ctx, state); err != nil {
		return err
	}

	return os.WriteFile(s.Path, ds.Data, 0644)
}
