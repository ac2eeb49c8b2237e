package chefserver

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func encryptValue(t *testing.T, version int, secret string, v interface{}) map[string]interface{} {
	t.Helper()

	return encryptValueWithHMACKey(t, version, secret, []byte(secret), v)
}

// encryptValueWithHMACKey encrypts v like Chef does, signing version 2 values with hmacKey.
// Chef signs with the raw secret.
func encryptValueWithHMACKey(t *testing.T, version int, secret string, hmacKey []byte, v interface{}) map[string]interface{} {
	t.Helper()

	key := sha256.Sum256([]byte(secret))

	plain, err := json.Marshal(map[string]interface{}{"json_wrapper": v})
	require.NoError(t, err)

	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)

	switch version {
	case 1, 2:
		iv := make([]byte, aes.BlockSize)
		_, err := rand.Read(iv)
		require.NoError(t, err)

		n := aes.BlockSize - len(plain)%aes.BlockSize
		plain = append(plain, bytes.Repeat([]byte{byte(n)}, n)...)

		ciphertext := make([]byte, len(plain))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plain)

		// Ruby's Base64.encode64 wraps lines at 60 characters.
		encoded := base64.StdEncoding.EncodeToString(ciphertext)
		var wrapped string
		for len(encoded) > 60 {
			wrapped += encoded[:60] + "\n"
			encoded = encoded[60:]
		}
		wrapped += encoded + "\n"

		ev := map[string]interface{}{
			"encrypted_data": wrapped,
			"iv":             base64.StdEncoding.EncodeToString(iv) + "\n",
			"version":        version,
			"cipher":         "aes-256-cbc",
		}

		if version == 2 {
			mac := hmac.New(sha256.New, hmacKey)
			mac.Write([]byte(wrapped))
			ev["hmac"] = base64.StdEncoding.EncodeToString(mac.Sum(nil)) + "\n"
		}

		return ev
	case 3:
		iv := make([]byte, 12)
		_, err := rand.Read(iv)
		require.NoError(t, err)

		gcm, err := cipher.NewGCM(block)
		require.NoError(t, err)

		sealed := gcm.Seal(nil, iv, plain, nil)
		ciphertext, tag := sealed[:len(sealed)-gcm.Overhead()], sealed[len(sealed)-gcm.Overhead():]

		return map[string]interface{}{
			"encrypted_data": base64.StdEncoding.EncodeToString(ciphertext),
			"iv":             base64.StdEncoding.EncodeToString(iv),
			"auth_tag":       base64.StdEncoding.EncodeToString(tag),
			"version":        3,
			"cipher":         "aes-256-gcm",
		}
	}

	t.Fatalf("unsupported version %d", version)
	return nil
}

func TestDecryptDataBagItem(t *testing.T) {
	for _, version := range []int{1, 2, 3} {
		version := version

		t.Run(fmt.Sprintf("version %d", version), func(t *testing.T) {
			raw := map[string]interface{}{
				"id":       "ent-org-proj",
				"password": encryptValue(t, version, "s3cr3t", "hunter2"),
				"nested":   encryptValue(t, version, "s3cr3t", map[string]interface{}{"a": []interface{}{"b"}}),
			}

			got, err := DecryptDataBagItem(raw, []byte("s3cr3t"))
			require.NoError(t, err)
			require.Equal(t, map[string]interface{}{
				"id":       "ent-org-proj",
				"password": "hunter2",
				"nested":   map[string]interface{}{"a": []interface{}{"b"}},
			}, got)

			_, err = DecryptDataBagItem(raw, []byte("wrong"))
			require.Error(t, err)
		})
	}

	t.Run("version 2 hmac keyed with the raw secret", func(t *testing.T) {
		hashed := sha256.Sum256([]byte("s3cr3t"))

		got, err := DecryptDataBagItem(map[string]interface{}{
			"pw": encryptValueWithHMACKey(t, 2, "s3cr3t", []byte("s3cr3t"), "hunter2"),
		}, []byte("s3cr3t"))
		require.NoError(t, err)
		require.Equal(t, map[string]interface{}{"pw": "hunter2"}, got)

		_, err = DecryptDataBagItem(map[string]interface{}{
			"pw": encryptValueWithHMACKey(t, 2, "s3cr3t", hashed[:], "hunter2"),
		}, []byte("s3cr3t"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "hmac does not match")
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := DecryptDataBagItem(map[string]interface{}{
			"x": map[string]interface{}{"encrypted_data": "AAAA", "iv": "AAAA", "version": 9},
		}, []byte("s"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported encrypted data bag version 9")
	})

	t.Run("plain value", func(t *testing.T) {
		_, err := DecryptDataBagItem(map[string]interface{}{"x": "plain"}, []byte("s"))
		require.Error(t, err)
	})
}

func TestEncryptedDataBagItem(t *testing.T) {
	ctx := context.Background()

	item := map[string]interface{}{
		"id":    "ent-org",
		"token": nil,
	}

	_, s := newTestChefServer(t, func(w http.ResponseWriter, r request) {
		if r.Path == "/organizations/test/data/delivery-secrets/ent-org" {
			writeJSON(w, http.StatusOK, item)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": []string{"not found"}})
	})

	secretPath := filepath.Join(t.TempDir(), "encrypted_data_bag_secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("s3cr3t\n"), 0600))

	item["token"] = encryptValue(t, 1, "s3cr3t", "abc")

	_, err := s.EncryptedDataBagItem(ctx, "delivery-secrets", "ent-org")
	require.Error(t, err, "no secret configured")

	s.Config.EncryptedDataBagSecret = secretPath

	got, err := s.EncryptedDataBagItem(ctx, "delivery-secrets", "ent-org")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"id": "ent-org", "token": "abc"}, got)

	_, err = s.EncryptedDataBagItem(ctx, "delivery-secrets", "ent-org-proj")
	require.True(t, IsNotFound(err))
}
