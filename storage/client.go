package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	"github.com/AmmannChristian/go-gcpapis/httpclient"
)

const (
	// DefaultEndpoint is the Cloud Storage JSON API base URL.
	DefaultEndpoint = "https://storage.googleapis.com/storage/v1"
	// DefaultUploadEndpoint is the base URL for media uploads.
	DefaultUploadEndpoint = "https://storage.googleapis.com/upload/storage/v1"
)

// Scopes are the OAuth2 scopes requested for Cloud Storage.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/devstorage.full_control",
}

// Client is a Cloud Storage REST client. It is safe for concurrent use.
type Client struct {
	tm             *gcpauth.TokenManager
	http           *http.Client
	endpoint       string
	uploadEndpoint string
	logger         gcpauth.Logger

	sdkMu sync.Mutex
	sdk   *gcs.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the JSON API base URL, e.g. for an emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithUploadEndpoint overrides the media upload base URL.
func WithUploadEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.uploadEndpoint = strings.TrimSuffix(endpoint, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests. Its transport is
// wrapped so the bearer token is still attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger enables request logging.
func WithLogger(logger gcpauth.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client that authenticates with tm.
func NewClient(tm *gcpauth.TokenManager, opts ...Option) (*Client, error) {
	if tm == nil {
		return nil, apierr.Auth("storage.NewClient", fmt.Errorf("storage: token manager is nil"))
	}

	c := &Client{
		tm:             tm,
		endpoint:       DefaultEndpoint,
		uploadEndpoint: DefaultUploadEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		hc, err := httpclient.NewBuilder().WithTokenManager(tm).Build()
		if err != nil {
			return nil, apierr.Transport("storage.NewClient", err)
		}
		c.http = hc
	} else {
		c.http = &http.Client{
			Transport:     httpclient.NewBearerTransport(tm, c.http.Transport),
			Timeout:       c.http.Timeout,
			CheckRedirect: c.http.CheckRedirect,
			Jar:           c.http.Jar,
		}
	}

	return c, nil
}

// NewDefaultClient creates a Client from Application Default Credentials.
func NewDefaultClient(ctx context.Context, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewDefaultTokenManager(ctx, Scopes)
	if err != nil {
		return nil, err
	}
	return NewClient(tm, opts...)
}

// NewClientFromFile creates a Client from a credential file.
func NewClientFromFile(ctx context.Context, path string, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewTokenManagerFromFile(ctx, path, Scopes)
	if err != nil {
		return nil, err
	}
	return NewClient(tm, opts...)
}

// TokenManager returns the token cache used by the client.
func (c *Client) TokenManager() *gcpauth.TokenManager {
	return c.tm
}

// Close releases the SDK client used for listing, if one was created.
func (c *Client) Close() error {
	c.sdkMu.Lock()
	defer c.sdkMu.Unlock()

	if c.sdk == nil {
		return nil
	}
	err := c.sdk.Close()
	c.sdk = nil
	return err
}

// sdkClient lazily creates a Cloud Storage SDK client that shares the
// authenticated HTTP client and endpoint.
func (c *Client) sdkClient(ctx context.Context) (*gcs.Client, error) {
	c.sdkMu.Lock()
	defer c.sdkMu.Unlock()

	if c.sdk != nil {
		return c.sdk, nil
	}

	sdk, err := gcs.NewClient(ctx,
		option.WithHTTPClient(c.http),
		option.WithEndpoint(c.endpoint+"/"),
	)
	if err != nil {
		return nil, apierr.Transport("storage.ListObjects", err)
	}
	c.sdk = sdk
	return sdk, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
