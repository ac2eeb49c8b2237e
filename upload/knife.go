package upload

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Knife uploads cookbooks with `knife cookbook upload`.
type Knife struct {
	// Path is the knife executable. Defaults to "knife" looked up in PATH.
	Path string
}

var _ Uploader = &Knife{}

func (k *Knife) Upload(ctx context.Context, name, path string, server chefserver.Config) error {
	bin := k.Path
	if bin == "" {
		bin = "knife"
	}

	cmd := exec.CommandContext(ctx, bin, uploadArgs(name, path, server)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logrus.Debugf("running %s", strings.Join(cmd.Args, " "))

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "knife cookbook upload %s to %s failed: %s", name, server, stderr.String())
	}

	logrus.Debugf("knife cookbook upload succeeded: %s", stdout.String())

	return nil
}

// uploadArgs points knife at the directory containing the cookbook,
// since --cookbook-path takes the parent of cookbook directories.
func uploadArgs(name, path string, server chefserver.Config) []string {
	args := []string{"cookbook", "upload", name, "--cookbook-path", filepath.Dir(filepath.Clean(path))}

	if server.KnifeConfig != "" {
		args = append(args, "--config", server.KnifeConfig)
	}

	if server.ServerURL != "" {
		args = append(args, "--server-url", server.ServerURL)
	}

	if server.ClientName != "" {
		args = append(args, "--user", server.ClientName)
	}

	if server.ClientKey != "" {
		args = append(args, "--key", server.ClientKey)
	}

	return args
}
