// Package chefserver talks to the Chef Server API.
package chefserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-chef/chef"
	"github.com/mumoshu/delivery-sugar/build"
	"github.com/sirupsen/logrus"
)

// Server is one Chef Server organization.
type Server struct {
	Config Config
}

func New(cfg Config) *Server {
	return &Server{Config: cfg}
}

// Details is what resources that manage Chef Server objects need to authenticate.
type Details struct {
	ServerURL string         `json:"chef_server_url" yaml:"chef_server_url"`
	Options   DetailsOptions `json:"options" yaml:"options"`
}

type DetailsOptions struct {
	ClientName         string `json:"client_name" yaml:"client_name"`
	SigningKeyFilename string `json:"signing_key_filename" yaml:"signing_key_filename"`
}

func (s *Server) Details() Details {
	return Details{
		ServerURL: s.Config.ServerURL,
		Options: DetailsOptions{
			ClientName:         s.Config.ClientName,
			SigningKeyFilename: s.Config.ClientKey,
		},
	}
}

// WithClient runs fn with an API client configured for this server only.
// The client does not outlive fn.
func (s *Server) WithClient(fn func(c *chef.Client) error) error {
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("invalid chef server config: %w", err)
	}

	key, err := os.ReadFile(s.Config.ClientKey)
	if err != nil {
		return fmt.Errorf("unable to read client key %s: %w", s.Config.ClientKey, err)
	}

	c, err := chef.NewClient(&chef.Config{
		Name:    s.Config.ClientName,
		Key:     string(key),
		BaseURL: s.Config.baseURL(),
		SkipSSL: s.Config.SkipSSL,
	})
	if err != nil {
		return fmt.Errorf("unable to create chef client for %s: %w", s.Config.ServerURL, err)
	}

	return fn(c)
}

// Rest makes a signed JSON request to path, relative to the organization URL,
// or to path itself when it is an absolute URL.
//
// body is encoded as JSON when non-nil. The response is decoded into out when non-nil.
// A non-2xx response is returned as a *StatusError.
func (s *Server) Rest(ctx context.Context, method, path string, body, out interface{}) error {
	return s.WithClient(func(c *chef.Client) error {
		var r io.Reader
		if body != nil {
			br, err := chef.JSONReader(body)
			if err != nil {
				return fmt.Errorf("unable to encode request body for %s %s: %w", method, path, err)
			}
			r = br
		}

		req, err := c.NewRequest(method, path, r)
		if err != nil {
			return fmt.Errorf("unable to create request %s %s: %w", method, path, err)
		}
		req.Header.Set("User-Agent", build.UserAgent())

		logrus.Debugf("chef server request: %s %s", method, req.URL)

		res, err := c.Do(req.WithContext(ctx), out)
		if res != nil && res.Body != nil {
			res.Body.Close()
		}

		if err != nil {
			var er *chef.ErrorResponse
			if errors.As(err, &er) && er.Response != nil {
				return &StatusError{
					Method:     method,
					Path:       path,
					StatusCode: er.Response.StatusCode,
					Err:        err,
				}
			}

			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		return nil
	})
}
