// Package upload uploads cookbooks to one or more Chef Servers.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/sirupsen/logrus"
)

type Uploader interface {
	// Upload uploads the cookbook named name, found at path, to server.
	Upload(ctx context.Context, name, path string, server chefserver.Config) error
}

// CookbookUploadFailedError lists the servers a cookbook could not be uploaded to.
type CookbookUploadFailedError struct {
	Name     string
	Failures []string
}

func (e *CookbookUploadFailedError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Failed to upload %s to the following Chef Servers:\n", e.Name)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "   - %s\n", f)
	}

	return b.String()
}

// Cookbook uploads the cookbook to every server, carrying on past failures.
//
// updated is true when at least one upload succeeded.
// err is a *CookbookUploadFailedError when at least one upload failed.
func Cookbook(ctx context.Context, uploader Uploader, name, path string, servers []chefserver.Config) (updated bool, err error) {
	if len(servers) == 0 {
		return false, errors.New("at least one chef server is required to upload a cookbook")
	}

	serverList := make([]string, 0, len(servers))
	for _, s := range servers {
		serverList = append(serverList, s.String())
	}

	logrus.Infof("Uploading cookbook %s to %s", name, strings.Join(serverList, ", "))

	var failures []string

	for _, server := range servers {
		if err := uploader.Upload(ctx, name, path, server); err != nil {
			logrus.Error(err)
			failures = append(failures, server.String())
		}
	}

	updated = len(failures) != len(servers)

	if len(failures) > 0 {
		return updated, &CookbookUploadFailedError{Name: name, Failures: failures}
	}

	return updated, nil
}
