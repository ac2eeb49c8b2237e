package release

// State is everything a YAMLFileStore persists.
type State struct {
	// Releases maps project names to the releases of the project, keyed by id.
	Releases map[string]map[string]Item `yaml:"releases,omitempty"`

	// Environments maps environment names to the application versions pinned on them.
	Environments map[string]Environment `yaml:"environments,omitempty"`
}

type Environment struct {
	Applications map[string]string `yaml:"applications,omitempty"`
}

func (s *State) SaveRelease(project string, item Item) {
	if s.Releases == nil {
		s.Releases = map[string]map[string]Item{}
	}

	if s.Releases[project] == nil {
		s.Releases[project] = map[string]Item{}
	}

	s.Releases[project][item.ID()] = item
}

func (s *State) LoadRelease(project, id string) Item {
	return s.Releases[project][id]
}

func (s *State) PinVersion(environment, app, version string) {
	if s.Environments == nil {
		s.Environments = map[string]Environment{}
	}

	env := s.Environments[environment]
	if env.Applications == nil {
		env.Applications = map[string]string{}
	}
	env.Applications[app] = version

	s.Environments[environment] = env
}
