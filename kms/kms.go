package kms

import (
	"context"
	"errors"

	"cloud.google.com/go/kms/apiv1/kmspb"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/grpcclient"
)

// PageSize is the page size requested by the list operations. Only the
// first page is returned.
const PageSize = 100

var errNilTokenManager = errors.New("kms: token manager is nil")

// ListKeyRings lists the key rings under parent,
// in the format "projects/*/locations/*".
func (c *Client) ListKeyRings(ctx context.Context, parent string) (*kmspb.ListKeyRingsResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("parent", parent))

	resp, err := c.kms.ListKeyRings(ctx, &kmspb.ListKeyRingsRequest{
		Parent:   parent,
		PageSize: PageSize,
	})
	if err != nil {
		return nil, apierr.FromRPC("kms.ListKeyRings", err)
	}

	c.logf("kms: listed %d key rings in %s", len(resp.GetKeyRings()), parent)
	return resp, nil
}

// ListCryptoKeys lists the crypto keys under parent,
// in the format "projects/*/locations/*/keyRings/*".
func (c *Client) ListCryptoKeys(ctx context.Context, parent string) (*kmspb.ListCryptoKeysResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("parent", parent))

	resp, err := c.kms.ListCryptoKeys(ctx, &kmspb.ListCryptoKeysRequest{
		Parent:   parent,
		PageSize: PageSize,
	})
	if err != nil {
		return nil, apierr.FromRPC("kms.ListCryptoKeys", err)
	}

	c.logf("kms: listed %d crypto keys in %s", len(resp.GetCryptoKeys()), parent)
	return resp, nil
}

// Encrypt encrypts plaintext with the key keyName,
// in the format "projects/*/locations/*/keyRings/*/cryptoKeys/*".
func (c *Client) Encrypt(ctx context.Context, keyName string, plaintext []byte) (*kmspb.EncryptResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("name", keyName))

	resp, err := c.kms.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      keyName,
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, apierr.FromRPC("kms.Encrypt", err)
	}

	c.logf("kms: encrypted %d bytes with %s", len(plaintext), keyName)
	return resp, nil
}

// Decrypt decrypts ciphertext produced by Encrypt with the same key.
func (c *Client) Decrypt(ctx context.Context, keyName string, ciphertext []byte) (*kmspb.DecryptResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("name", keyName))

	resp, err := c.kms.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       keyName,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, apierr.FromRPC("kms.Decrypt", err)
	}

	c.logf("kms: decrypted %d bytes with %s", len(ciphertext), keyName)
	return resp, nil
}
