package release

import (
	"context"
	"fmt"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const applicationsAttribute = "applications"

// ChefServer is the part of *chefserver.Server a ChefServerStore needs.
type ChefServer interface {
	DataBagItem(ctx context.Context, bag, item string) (map[string]interface{}, error)
	CreateDataBag(ctx context.Context, bag string) error
	SaveDataBagItem(ctx context.Context, bag string, item map[string]interface{}) error
	Environment(ctx context.Context, name string) (*chefserver.Environment, error)
	CreateEnvironment(ctx context.Context, env *chefserver.Environment) error
	SaveEnvironment(ctx context.Context, env *chefserver.Environment) error
}

var _ ChefServer = &chefserver.Server{}

// ChefServerStore stores releases as data bag items and pins as environment
// override attributes on the Chef Server.
type ChefServerStore struct {
	Server ChefServer
}

var _ Store = &ChefServerStore{}

func (s *ChefServerStore) SaveRelease(ctx context.Context, project string, item Item) error {
	if err := s.Server.CreateDataBag(ctx, project); err != nil {
		return errors.Wrapf(err, "unable to create data bag %s", project)
	}

	if err := s.Server.SaveDataBagItem(ctx, project, item); err != nil {
		return errors.Wrapf(err, "unable to save release %s", item.ID())
	}

	return nil
}

func (s *ChefServerStore) LoadRelease(ctx context.Context, project, id string) (Item, error) {
	data, err := s.Server.DataBagItem(ctx, project, id)
	if chefserver.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return Item(data), nil
}

func (s *ChefServerStore) PinVersion(ctx context.Context, environment, app, version string) error {
	env, err := s.Server.Environment(ctx, environment)
	if chefserver.IsNotFound(err) {
		logrus.Infof("creating environment %s", environment)

		env = chefserver.NewEnvironment(environment)
		if err := s.Server.CreateEnvironment(ctx, env); err != nil {
			return errors.Wrapf(err, "unable to create environment %s", environment)
		}
	} else if err != nil {
		return err
	}

	apps, _ := env.OverrideAttributes[applicationsAttribute].(map[string]interface{})
	if apps == nil {
		apps = map[string]interface{}{}
	}
	apps[app] = version
	env.OverrideAttributes[applicationsAttribute] = apps

	return s.Server.SaveEnvironment(ctx, env)
}

func (s *ChefServerStore) PinnedVersion(ctx context.Context, environment, app string) (*string, error) {
	env, err := s.Server.Environment(ctx, environment)
	if chefserver.IsNotFound(err) {
		return nil, errors.Wrapf(ErrEnvironmentNotFound, "%s", environment)
	} else if err != nil {
		return nil, err
	}

	apps, _ := env.OverrideAttributes[applicationsAttribute].(map[string]interface{})

	v, ok := apps[app]
	if !ok || v == nil {
		return nil, nil
	}

	version := fmt.Sprint(v)

	return &version, nil
}
