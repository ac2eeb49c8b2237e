package chefserver

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// encryptedValue is one encrypted field of an encrypted data bag item.
type encryptedValue struct {
	EncryptedData string `json:"encrypted_data"`
	IV            string `json:"iv"`
	HMAC          string `json:"hmac,omitempty"`
	AuthTag       string `json:"auth_tag,omitempty"`
	Version       int    `json:"version"`
	Cipher        string `json:"cipher"`
}

// DecryptDataBagItem decrypts every field of an encrypted data bag item but "id".
//
// Format versions 1 and 2 (aes-256-cbc, version 2 adding an HMAC over the ciphertext)
// and version 3 (aes-256-gcm) are supported. The cipher key is the SHA-256 of the secret,
// while the version 2 HMAC is keyed with the secret itself.
func DecryptDataBagItem(raw map[string]interface{}, secret []byte) (map[string]interface{}, error) {
	key := sha256.Sum256(secret)

	out := map[string]interface{}{}

	for k, v := range raw {
		if k == "id" {
			out[k] = v
			continue
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		var ev encryptedValue
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("field %q is not an encrypted value: %w", k, err)
		}

		plain, err := ev.decrypt(key[:], secret)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}

		// The plaintext wraps the value so that non-object values survive JSON encoding.
		var wrapper struct {
			Value interface{} `json:"json_wrapper"`
		}
		if err := json.Unmarshal(plain, &wrapper); err != nil {
			return nil, fmt.Errorf("field %q: unable to decode decrypted value: %w", k, err)
		}

		out[k] = wrapper.Value
	}

	return out, nil
}

func (ev encryptedValue) decrypt(key, secret []byte) ([]byte, error) {
	ciphertext, err := decodeBase64(ev.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted_data: %w", err)
	}

	iv, err := decodeBase64(ev.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	switch ev.Version {
	case 1, 2:
		if ev.Version == 2 {
			if err := ev.verifyHMAC(secret); err != nil {
				return nil, err
			}
		}

		if len(iv) != aes.BlockSize {
			return nil, fmt.Errorf("invalid iv length %d", len(iv))
		}

		if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
			return nil, fmt.Errorf("invalid ciphertext length %d", len(ciphertext))
		}

		plain := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

		return unpad(plain)
	case 3:
		tag, err := decodeBase64(ev.AuthTag)
		if err != nil {
			return nil, fmt.Errorf("invalid auth_tag: %w", err)
		}

		gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
		if err != nil {
			return nil, err
		}

		plain, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
		if err != nil {
			return nil, fmt.Errorf("unable to decrypt: %w", err)
		}

		return plain, nil
	default:
		return nil, fmt.Errorf("unsupported encrypted data bag version %d", ev.Version)
	}
}

// verifyHMAC checks the HMAC-SHA256 of the base64 encrypted_data text, as stored.
func (ev encryptedValue) verifyHMAC(secret []byte) error {
	want, err := decodeBase64(ev.HMAC)
	if err != nil {
		return fmt.Errorf("invalid hmac: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ev.EncryptedData))

	if !hmac.Equal(mac.Sum(nil), want) {
		return fmt.Errorf("hmac does not match, the secret is probably wrong")
	}

	return nil
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding, the secret is probably wrong")
	}

	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("invalid padding, the secret is probably wrong")
	}

	return b[:len(b)-n], nil
}

// decodeBase64 accepts the line-wrapped base64 Ruby's Base64.encode64 produces.
func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}
