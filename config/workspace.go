package config

import "path/filepath"

const DefaultWorkspacePath = "/var/opt/delivery/workspace"

// Workspace is the directory layout of the build node.
type Workspace struct {
	// Path is the top-level workspace directory shared by every project on the build node.
	Path string `yaml:"path"`

	// Root is the workspace of this change. Defaults to Path.
	Root string `yaml:"root,omitempty"`

	// Repo is the checkout of the project. Defaults to <root>/repo.
	Repo string `yaml:"repo,omitempty"`

	// Chef is the chef-client working directory. Defaults to <root>/chef.
	Chef string `yaml:"chef,omitempty"`

	// Cache is a directory kept across phases. Defaults to <root>/cache.
	Cache string `yaml:"cache,omitempty"`

	BuildUser string `yaml:"buildUser,omitempty"`
}

func (w *Workspace) setDefaults() {
	if w.Path == "" {
		w.Path = DefaultWorkspacePath
	}

	if w.Root == "" {
		w.Root = w.Path
	}

	if w.Repo == "" {
		w.Repo = filepath.Join(w.Root, "repo")
	}

	if w.Chef == "" {
		w.Chef = filepath.Join(w.Root, "chef")
	}

	if w.Cache == "" {
		w.Cache = filepath.Join(w.Root, "cache")
	}
}

// KnifeConfig is where the build node keeps the knife config of the pipeline's Chef Server.
func (w Workspace) KnifeConfig() string {
	return filepath.Join(w.Path, ".chef", "knife.rb")
}
