package change

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/mumoshu/delivery-sugar/release"
	"github.com/stretchr/testify/require"
)

func TestAppSlug(t *testing.T) {
	c := New(testConfig("/repo"), &fakeRunner{})

	require.Equal(t, "ent-org-proj-app-1.2.3", c.AppSlug("app", "1.2.3"))
	require.Equal(t, "ent-org-proj-my_app-1.2.3_build_4", c.AppSlug("my app", "1.2.3+build/4"))
}

func TestProjectApplication(t *testing.T) {
	ctx := context.Background()

	store := &release.YAMLFileStore{Path: filepath.Join(t.TempDir(), "releases.yaml")}

	build := testConfig("/repo")
	build.Change.Stage = "build"

	item, err := New(build, &fakeRunner{}).DefineProjectApplication(ctx, store, "app", "1.2.3", map[string]interface{}{
		"artifact": "https://example.com/app-1.2.3.tgz",
	})
	require.NoError(t, err)
	require.Equal(t, release.Item{
		"id":       "ent-org-proj-app-1.2.3",
		"name":     "app",
		"version":  "1.2.3",
		"artifact": "https://example.com/app-1.2.3.tgz",
	}, item)

	pinned, err := store.PinnedVersion(ctx, "acceptance-ent-org-proj-master", "app")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", *pinned)

	acceptance := testConfig("/repo")
	acceptance.Change.Stage = "acceptance"

	got, err := New(acceptance, &fakeRunner{}).GetProjectApplication(ctx, store, "app")
	require.NoError(t, err)
	require.Equal(t, item, got)

	_, err = New(acceptance, &fakeRunner{}).GetProjectApplication(ctx, store, "other")
	require.ErrorIs(t, err, ErrAppNotFound)
	require.Contains(t, err.Error(), "could not find app other for stage acceptance")

	union := testConfig("/repo")
	union.Change.Stage = "union"

	_, err = New(union, &fakeRunner{}).GetProjectApplication(ctx, store, "app")
	require.ErrorIs(t, err, release.ErrEnvironmentNotFound)
	require.Contains(t, err.Error(), "could not load the environment for the union stage")
	require.False(t, errors.Is(err, ErrAppNotFound))

	require.NoError(t, store.PinVersion(ctx, "union", "app", "1.0.0"))

	_, err = New(union, &fakeRunner{}).GetProjectApplication(ctx, store, "app")
	require.ErrorIs(t, err, ErrAppNotFound, "pinned to a version that was never defined")
}

type fakeSecretSource struct {
	items map[string]map[string]interface{}
	err   error
	calls []string
}

func (s *fakeSecretSource) EncryptedDataBagItem(_ context.Context, bag, item string) (map[string]interface{}, error) {
	s.calls = append(s.calls, bag+"/"+item)

	if s.err != nil {
		return nil, s.err
	}

	data, ok := s.items[item]
	if !ok {
		return nil, &chefserver.StatusError{Method: http.MethodGet, Path: "data/" + bag + "/" + item, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
	}

	return data, nil
}

func TestProjectSecrets(t *testing.T) {
	ctx := context.Background()
	c := New(testConfig("/repo"), &fakeRunner{})

	t.Run("project secrets", func(t *testing.T) {
		src := &fakeSecretSource{items: map[string]map[string]interface{}{
			"ent-org-proj": {"id": "ent-org-proj", "token": "project"},
			"ent-org":      {"id": "ent-org", "token": "org"},
		}}

		secrets, err := c.ProjectSecrets(ctx, src)
		require.NoError(t, err)
		require.Equal(t, "project", secrets["token"])
		require.Equal(t, []string{"delivery-secrets/ent-org-proj"}, src.calls)
	})

	t.Run("falls back to organization secrets", func(t *testing.T) {
		src := &fakeSecretSource{items: map[string]map[string]interface{}{
			"ent-org": {"id": "ent-org", "token": "org"},
		}}

		secrets, err := c.ProjectSecrets(ctx, src)
		require.NoError(t, err)
		require.Equal(t, "org", secrets["token"])
		require.Equal(t, []string{"delivery-secrets/ent-org-proj", "delivery-secrets/ent-org"}, src.calls)
	})

	t.Run("other errors are not recovered", func(t *testing.T) {
		forbidden := &chefserver.StatusError{Method: http.MethodGet, Path: "data/delivery-secrets/ent-org-proj", StatusCode: http.StatusForbidden, Err: errors.New("forbidden")}
		src := &fakeSecretSource{err: forbidden}

		_, err := c.ProjectSecrets(ctx, src)
		require.Equal(t, forbidden, err)
		require.Equal(t, []string{"delivery-secrets/ent-org-proj"}, src.calls)
	})
}
