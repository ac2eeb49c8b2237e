package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/mumoshu/delivery-sugar/envvar"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		envvar.Config, envvar.KnifeRB,
		envvar.Enterprise, envvar.Organization, envvar.Project, envvar.Pipeline,
		envvar.Stage, envvar.Phase, envvar.PatchsetBranch, envvar.ChangeID, envvar.MergeSHA,
		envvar.BuildUser, envvar.WorkspacePath, envvar.WorkspaceRepo, envvar.WorkspaceRoot,
		envvar.WorkspaceChef, envvar.WorkspaceCache,
	} {
		t.Setenv(name, "")
	}
}

func TestLoad(t *testing.T) {
	unsetEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "delivery.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`change:
  enterprise: ent
  organization: org
  project: proj
  pipeline: master
  stage: verify
  phase: unit
  patchsetBranch: _reviews/master/feature/1
  changeID: 9e1a2c
workspace:
  path: /ws
  root: /ws/ent/org/proj/master/verify/unit
chefServer:
  serverURL: https://chef.example.com/organizations/org
  clientName: delivery
  clientKey: /ws/.chef/delivery.pem
pushJob:
  timeout: 10m
`), 0644))

	t.Setenv(envvar.Stage, "acceptance")
	t.Setenv(envvar.MergeSHA, "0123abcd")

	cfg, err := Load(path)
	require.NoError(t, err)

	server := chefserver.Config{
		ServerURL:   "https://chef.example.com/organizations/org",
		ClientName:  "delivery",
		ClientKey:   "/ws/.chef/delivery.pem",
		KnifeConfig: "/ws/.chef/knife.rb",
	}

	want := &Config{
		Change: Change{
			Enterprise:     "ent",
			Organization:   "org",
			Project:        "proj",
			Pipeline:       "master",
			Stage:          "acceptance",
			Phase:          "unit",
			PatchsetBranch: "_reviews/master/feature/1",
			ChangeID:       "9e1a2c",
			MergeSHA:       "0123abcd",
			Remote:         "origin",
		},
		Workspace: Workspace{
			Path:  "/ws",
			Root:  "/ws/ent/org/proj/master/verify/unit",
			Repo:  "/ws/ent/org/proj/master/verify/unit/repo",
			Chef:  "/ws/ent/org/proj/master/verify/unit/chef",
			Cache: "/ws/ent/org/proj/master/verify/unit/cache",
		},
		ChefServer:    server,
		UploadTargets: []chefserver.Config{server},
		PushJob: PushJob{
			Timeout:      10 * time.Minute,
			PollInterval: 5 * time.Second,
		},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	unsetEnv(t)

	t.Setenv(envvar.Project, "proj")
	t.Setenv(envvar.WorkspaceRepo, "/src/proj")
	t.Setenv(envvar.KnifeRB, "/etc/chef/knife.rb")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "proj", cfg.Change.Project)
	require.Equal(t, "origin", cfg.Change.Remote)
	require.Equal(t, DefaultWorkspacePath, cfg.Workspace.Path)
	require.Equal(t, "/src/proj", cfg.Workspace.Repo)
	require.Equal(t, "/etc/chef/knife.rb", cfg.ChefServer.KnifeConfig)
	require.Equal(t, 30*time.Minute, cfg.PushJob.Timeout)
}

func TestLoadEmptyFile(t *testing.T) {
	unsetEnv(t)

	path := filepath.Join(t.TempDir(), "delivery.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(DefaultWorkspacePath, ".chef", "knife.rb"), cfg.ChefServer.KnifeConfig)
}

func TestLoadInvalid(t *testing.T) {
	unsetEnv(t)

	path := filepath.Join(t.TempDir(), "delivery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("change: [\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unable to decode yaml")
}

func TestUploadTargets(t *testing.T) {
	unsetEnv(t)

	path := filepath.Join(t.TempDir(), "delivery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`chefServer:
  serverURL: https://chef.example.com/organizations/org
uploadTargets:
- serverURL: https://chef1.example.com/organizations/org
  knifeConfig: /etc/chef/chef1.rb
- serverURL: https://chef2.example.com/organizations/org
  knifeConfig: /etc/chef/chef2.rb
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.UploadTargets, 2)
	require.Equal(t, "https://chef2.example.com/organizations/org", cfg.UploadTargets[1].String())
}

func TestPath(t *testing.T) {
	t.Setenv(envvar.Config, "")
	require.Equal(t, DefaultPath, Path(""))

	t.Setenv(envvar.Config, "/etc/delivery.yaml")
	require.Equal(t, "/etc/delivery.yaml", Path(""))
	require.Equal(t, "custom.yaml", Path("custom.yaml"))
}
