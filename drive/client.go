package drive

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	"github.com/AmmannChristian/go-gcpapis/httpclient"
)

// DefaultEndpoint is the Google APIs host serving Drive.
const DefaultEndpoint = "https://www.googleapis.com"

// Scope is a Drive OAuth2 scope.
type Scope string

const (
	// ScopeFull sees, edits, creates and deletes all Drive files.
	ScopeFull Scope = "https://www.googleapis.com/auth/drive"
	// ScopeAppdata manages the app's own configuration data.
	ScopeAppdata Scope = "https://www.googleapis.com/auth/drive.appdata"
	// ScopeFile manages only files opened or created by the app.
	ScopeFile Scope = "https://www.googleapis.com/auth/drive.file"
	// ScopeMetadata views and manages file metadata.
	ScopeMetadata Scope = "https://www.googleapis.com/auth/drive.metadata"
	// ScopeMetadataReadonly views file metadata.
	ScopeMetadataReadonly Scope = "https://www.googleapis.com/auth/drive.metadata.readonly"
	// ScopePhotoReadonly views Google Photos content.
	ScopePhotoReadonly Scope = "https://www.googleapis.com/auth/drive.photos.readonly"
	// ScopeReadonly sees and downloads all Drive files.
	ScopeReadonly Scope = "https://www.googleapis.com/auth/drive.readonly"
	// ScopeScript modifies Apps Script behavior.
	ScopeScript Scope = "https://www.googleapis.com/auth/drive.scripts"
)

// Scopes converts scopes to the string form expected by gcpauth.
func Scopes(scopes ...Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// DefaultScopes are requested by NewDefaultClient and NewClientFromFile.
var DefaultScopes = Scopes(ScopeFull)

var errNilTokenManager = errors.New("drive: token manager is nil")

// Client is a Google Drive REST client. It is safe for concurrent use.
type Client struct {
	tm       *gcpauth.TokenManager
	http     *http.Client
	endpoint string
	logger   gcpauth.Logger

	svcMu sync.Mutex
	svc   *drivev3.Service
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API host.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
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
		return nil, apierr.Auth("drive.NewClient", errNilTokenManager)
	}

	c := &Client{
		tm:       tm,
		endpoint: DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		hc, err := httpclient.NewBuilder().WithTokenManager(tm).Build()
		if err != nil {
			return nil, apierr.Transport("drive.NewClient", err)
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

// NewDefaultClient creates a Client from Application Default Credentials
// with DefaultScopes.
func NewDefaultClient(ctx context.Context, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewDefaultTokenManager(ctx, DefaultScopes)
	if err != nil {
		return nil, err
	}
	return NewClient(tm, opts...)
}

// NewClientFromFile creates a Client from a credential file with DefaultScopes.
func NewClientFromFile(ctx context.Context, path string, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewTokenManagerFromFile(ctx, path, DefaultScopes)
	if err != nil {
		return nil, err
	}
	return NewClient(tm, opts...)
}

// TokenManager returns the token cache used by the client.
func (c *Client) TokenManager() *gcpauth.TokenManager {
	return c.tm
}

// service lazily creates the Drive v3 SDK service over the authenticated client.
func (c *Client) service(ctx context.Context) (*drivev3.Service, error) {
	c.svcMu.Lock()
	defer c.svcMu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}

	svc, err := drivev3.NewService(ctx,
		option.WithHTTPClient(c.http),
		option.WithEndpoint(c.endpoint+"/drive/v3/"),
	)
	if err != nil {
		return nil, apierr.Transport("drive.Get", err)
	}
	c.svc = svc
	return svc, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
