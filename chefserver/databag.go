package chefserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// DataBagItem returns the raw content of a data bag item.
func (s *Server) DataBagItem(ctx context.Context, bag, item string) (map[string]interface{}, error) {
	var data map[string]interface{}

	if err := s.Rest(ctx, http.MethodGet, dataBagItemPath(bag, item), nil, &data); err != nil {
		return nil, err
	}

	return data, nil
}

// EncryptedDataBagItem returns the decrypted content of an encrypted data bag item,
// using the secret at Config.EncryptedDataBagSecret.
func (s *Server) EncryptedDataBagItem(ctx context.Context, bag, item string) (map[string]interface{}, error) {
	secret, err := s.secret()
	if err != nil {
		return nil, err
	}

	raw, err := s.DataBagItem(ctx, bag, item)
	if err != nil {
		return nil, err
	}

	data, err := DecryptDataBagItem(raw, secret)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt data bag item %s/%s: %w", bag, item, err)
	}

	return data, nil
}

// CreateDataBag creates the data bag unless it already exists.
func (s *Server) CreateDataBag(ctx context.Context, bag string) error {
	err := s.Rest(ctx, http.MethodPost, "data", map[string]string{"name": bag}, nil)
	if hasStatus(err, http.StatusConflict) {
		logrus.Debugf("data bag %s already exists", bag)
		return nil
	}

	return err
}

// SaveDataBagItem updates the item, creating it when it does not exist yet.
// The item must carry its name under the "id" key.
func (s *Server) SaveDataBagItem(ctx context.Context, bag string, item map[string]interface{}) error {
	id, _ := item["id"].(string)
	if id == "" {
		return fmt.Errorf("data bag item for %s has no id", bag)
	}

	err := s.Rest(ctx, http.MethodPut, dataBagItemPath(bag, id), item, nil)
	if IsNotFound(err) {
		return s.Rest(ctx, http.MethodPost, "data/"+url.PathEscape(bag), item, nil)
	}

	return err
}

func (s *Server) secret() ([]byte, error) {
	if s.Config.EncryptedDataBagSecret == "" {
		return nil, fmt.Errorf("no encrypted data bag secret configured for %s", s.Config)
	}

	data, err := os.ReadFile(s.Config.EncryptedDataBagSecret)
	if err != nil {
		return nil, fmt.Errorf("unable to read encrypted data bag secret: %w", err)
	}

	return []byte(strings.TrimSpace(string(data))), nil
}

func dataBagItemPath(bag, item string) string {
	return "data/" + url.PathEscape(bag) + "/" + url.PathEscape(item)
}
