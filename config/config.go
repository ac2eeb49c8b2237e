// Package config loads delivery.yaml, the settings of one pipeline run.
//
// Every field describing the change being processed or the workspace can be
// overridden with the environment variables listed in package envvar.
package config

import (
	"fmt"
	"io"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/mumoshu/delivery-sugar/envvar"
)

const DefaultPath = "delivery.yaml"

type Config struct {
	Change    Change    `yaml:"change"`
	Workspace Workspace `yaml:"workspace"`

	// ChefServer is the Chef Server of the pipeline itself.
	// Releases, environments, secrets and push jobs all live there.
	ChefServer chefserver.Config `yaml:"chefServer"`

	// UploadTargets are the Chef Servers cookbooks are uploaded to.
	// Defaults to ChefServer.
	UploadTargets []chefserver.Config `yaml:"uploadTargets,omitempty"`

	PushJob PushJob `yaml:"pushJob"`
}

// Path returns the path of the config file to load,
// which is the flag value, else envvar.Config, else DefaultPath.
func Path(flag string) string {
	if flag != "" {
		return flag
	}

	if p := os.Getenv(envvar.Config); p != "" {
		return p
	}

	return DefaultPath
}

// Load reads the config file at path, applies the environment overrides and fills in defaults.
// A missing file is fine as long as the environment supplies the rest.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("unable to decode yaml: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		envvar.Enterprise:     &c.Change.Enterprise,
		envvar.Organization:   &c.Change.Organization,
		envvar.Project:        &c.Change.Project,
		envvar.Pipeline:       &c.Change.Pipeline,
		envvar.Stage:          &c.Change.Stage,
		envvar.Phase:          &c.Change.Phase,
		envvar.PatchsetBranch: &c.Change.PatchsetBranch,
		envvar.ChangeID:       &c.Change.ChangeID,
		envvar.MergeSHA:       &c.Change.MergeSHA,
		envvar.BuildUser:      &c.Workspace.BuildUser,
		envvar.WorkspacePath:  &c.Workspace.Path,
		envvar.WorkspaceRepo:  &c.Workspace.Repo,
		envvar.WorkspaceRoot:  &c.Workspace.Root,
		envvar.WorkspaceChef:  &c.Workspace.Chef,
		envvar.WorkspaceCache: &c.Workspace.Cache,
		envvar.KnifeRB:        &c.ChefServer.KnifeConfig,
	}

	for name, field := range overrides {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) setDefaults() {
	c.Change.setDefaults()
	c.Workspace.setDefaults()
	c.PushJob.setDefaults()

	if c.ChefServer.KnifeConfig == "" {
		c.ChefServer.KnifeConfig = c.Workspace.KnifeConfig()
	}

	if len(c.UploadTargets) == 0 {
		c.UploadTargets = []chefserver.Config{c.ChefServer}
	}
}
