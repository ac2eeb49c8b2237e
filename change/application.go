package change

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mumoshu/delivery-sugar/config"
	"github.com/mumoshu/delivery-sugar/release"
	"github.com/sirupsen/logrus"
)

// ErrAppNotFound is returned by GetProjectApplication when the application has no release
// pinned on the environment of the current stage.
var ErrAppNotFound = errors.New("application not found")

// invalidDataBagItemIDRegexp matches what Chef does not accept in a data bag item id.
var invalidDataBagItemIDRegexp = regexp.MustCompile(`[^.\-[:alnum:]_]`)

// AppSlug returns the id of the release of app at version.
func (c *Change) AppSlug(app, version string) string {
	return invalidDataBagItemIDRegexp.ReplaceAllString(c.ProjectSlug()+"-"+app+"-"+version, "_")
}

// DefineProjectApplication records a release of app at version, with attrs describing it,
// and pins the application to that version on the acceptance environment.
//
// It is meant to be called at the end of the build stage.
func (c *Change) DefineProjectApplication(ctx context.Context, store release.Store, app, version string, attrs map[string]interface{}) (release.Item, error) {
	if c.Stage != config.StageBuild {
		logrus.Warnf("define-application should be called at the end of the build stage (usually in the publish phase). It was called from the %s stage.", c.Stage)
	}

	item := release.Item{
		"id":      c.AppSlug(app, version),
		"version": version,
		"name":    app,
	}
	for k, v := range attrs {
		item[k] = v
	}

	if err := store.SaveRelease(ctx, c.Project, item); err != nil {
		return nil, err
	}

	env := c.AcceptanceEnvironment()

	if err := store.PinVersion(ctx, env, app, version); err != nil {
		return nil, fmt.Errorf("unable to pin %s to %s on %s: %w", app, version, env, err)
	}

	logrus.WithFields(logrus.Fields{
		"id":          item.ID(),
		"environment": env,
	}).Infof("defined application %s at %s", app, version)

	return item, nil
}

// GetProjectApplication returns the release of app pinned on the environment of the current stage.
//
// It is meant to be called from the acceptance, union, rehearsal or delivered stage.
func (c *Change) GetProjectApplication(ctx context.Context, store release.Store, app string) (release.Item, error) {
	if c.Stage == config.StageBuild || c.Stage == config.StageVerify {
		logrus.Warnf("get-application must be called from the acceptance, union, rehearsal or delivered stage. It was called from the %s stage.", c.Stage)
	}

	env := c.EnvironmentForCurrentStage()

	version, err := store.PinnedVersion(ctx, env, app)
	if errors.Is(err, release.ErrEnvironmentNotFound) {
		return nil, fmt.Errorf("could not load the environment for the %s stage. Make sure the environment is provisioned before loading applications: %w", c.Stage, err)
	} else if err != nil {
		return nil, err
	}

	if version == nil {
		return nil, c.appNotFound(app)
	}

	item, err := store.LoadRelease(ctx, c.Project, c.AppSlug(app, *version))
	if err != nil {
		return nil, err
	}

	if item == nil {
		return nil, c.appNotFound(app)
	}

	return item, nil
}

func (c *Change) appNotFound(app string) error {
	return fmt.Errorf("%w: could not find app %s for stage %s. Has it been defined with define-application, and has the environment been provisioned since?", ErrAppNotFound, app, c.Stage)
}
