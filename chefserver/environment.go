package chefserver

import (
	"context"
	"net/http"
	"net/url"
)

// Environment is a Chef environment.
type Environment struct {
	Name               string                 `json:"name"`
	Description        string                 `json:"description"`
	ChefType           string                 `json:"chef_type"`
	JSONClass          string                 `json:"json_class"`
	DefaultAttributes  map[string]interface{} `json:"default_attributes"`
	OverrideAttributes map[string]interface{} `json:"override_attributes"`
	CookbookVersions   map[string]string      `json:"cookbook_versions"`
}

func NewEnvironment(name string) *Environment {
	return &Environment{
		Name:               name,
		ChefType:           "environment",
		JSONClass:          "Chef::Environment",
		DefaultAttributes:  map[string]interface{}{},
		OverrideAttributes: map[string]interface{}{},
		CookbookVersions:   map[string]string{},
	}
}

func (s *Server) Environment(ctx context.Context, name string) (*Environment, error) {
	var env Environment

	if err := s.Rest(ctx, http.MethodGet, environmentPath(name), nil, &env); err != nil {
		return nil, err
	}

	if env.OverrideAttributes == nil {
		env.OverrideAttributes = map[string]interface{}{}
	}

	return &env, nil
}

func (s *Server) CreateEnvironment(ctx context.Context, env *Environment) error {
	return s.Rest(ctx, http.MethodPost, "environments", env, nil)
}

func (s *Server) SaveEnvironment(ctx context.Context, env *Environment) error {
	return s.Rest(ctx, http.MethodPut, environmentPath(env.Name), env, nil)
}

func environmentPath(name string) string {
	return "environments/" + url.PathEscape(name)
}
