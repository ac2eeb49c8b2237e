package change

import (
	"context"

	"github.com/mumoshu/delivery-sugar/chefserver"
	"github.com/sirupsen/logrus"
)

// SecretsDataBag is the encrypted data bag holding pipeline secrets,
// with one item per organization and one per project.
const SecretsDataBag = "delivery-secrets"

// SecretSource is the part of *chefserver.Server secrets are loaded from.
type SecretSource interface {
	EncryptedDataBagItem(ctx context.Context, bag, item string) (map[string]interface{}, error)
}

var _ SecretSource = &chefserver.Server{}

// ProjectSecrets returns the secrets of the project.
// When the project has none, it falls back to the secrets of the organization.
func (c *Change) ProjectSecrets(ctx context.Context, src SecretSource) (map[string]interface{}, error) {
	secrets, err := src.EncryptedDataBagItem(ctx, SecretsDataBag, c.ProjectSlug())
	if chefserver.IsNotFound(err) {
		logrus.Warnf("Could not find secrets for project %s, falling back to organization secrets", c.ProjectSlug())
		logrus.Infof("Loading organization secrets %s", c.OrganizationSlug())

		return c.OrganizationSecrets(ctx, src)
	}

	return secrets, err
}

func (c *Change) OrganizationSecrets(ctx context.Context, src SecretSource) (map[string]interface{}, error) {
	return src.EncryptedDataBagItem(ctx, SecretsDataBag, c.OrganizationSlug())
}
