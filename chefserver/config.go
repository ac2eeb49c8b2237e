package chefserver

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Config is everything needed to talk to one Chef Server organization.
//
// It is an explicit value handed to New instead of ambient process configuration,
// so that talking to several Chef Servers in one run never leaks settings between them.
type Config struct {
	// ServerURL is the organization URL, e.g. https://chef.example.com/organizations/myorg
	ServerURL string `yaml:"serverURL" json:"serverURL"`

	// ClientName is the API client (or user) name requests are signed as.
	ClientName string `yaml:"clientName" json:"clientName"`

	// ClientKey is the path to the PEM-encoded private key of ClientName.
	ClientKey string `yaml:"clientKey" json:"clientKey"`

	// EncryptedDataBagSecret is the path to the shared secret used to decrypt
	// encrypted data bag items. Optional unless secrets are read.
	EncryptedDataBagSecret string `yaml:"encryptedDataBagSecret,omitempty" json:"encryptedDataBagSecret,omitempty"`

	// KnifeConfig is the path to a knife.rb for the same server,
	// used when a task has to be delegated to knife.
	KnifeConfig string `yaml:"knifeConfig,omitempty" json:"knifeConfig,omitempty"`

	SkipSSL bool `yaml:"skipSSL,omitempty" json:"skipSSL,omitempty"`
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("serverURL is required")
	}

	if !strings.HasPrefix(c.ServerURL, "https://") && !strings.HasPrefix(c.ServerURL, "http://") {
		return fmt.Errorf("serverURL must be an http(s) URL: %q", c.ServerURL)
	}

	if c.ClientName == "" {
		return errors.New("clientName is required")
	}

	if c.ClientKey == "" {
		return errors.New("clientKey is required")
	}

	return nil
}

// String identifies the server in logs and failure reports.
func (c Config) String() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return c.KnifeConfig
}

// baseURL always ends with a slash, so that relative API paths
// resolve under the organization instead of replacing its last segment.
func (c Config) baseURL() string {
	if strings.HasSuffix(c.ServerURL, "/") {
		return c.ServerURL
	}
	return c.ServerURL + "/"
}
