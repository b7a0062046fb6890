package kms

import (
	"context"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/grpc"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	"github.com/AmmannChristian/go-gcpapis/grpcclient"
)

// DefaultEndpoint is the Cloud KMS gRPC endpoint.
const DefaultEndpoint = "cloudkms.googleapis.com:443"

// Scopes are the OAuth2 scopes requested for Cloud KMS.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/cloudkms",
}

// Client is a Cloud KMS client. It is safe for concurrent use.
type Client struct {
	tm     *gcpauth.TokenManager
	conn   *grpc.ClientConn
	kms    kmspb.KeyManagementServiceClient
	logger gcpauth.Logger
}

type config struct {
	endpoint string
	insecure bool
	dialOpts []grpc.DialOption
	logger   gcpauth.Logger
}

// Option configures a Client.
type Option func(*config)

// WithEndpoint overrides the gRPC endpoint ("host:port").
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithInsecure dials without TLS.
func WithInsecure() Option {
	return func(c *config) {
		c.insecure = true
	}
}

// WithDialOptions appends gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *config) {
		c.dialOpts = append(c.dialOpts, opts...)
	}
}

// WithLogger enables call logging.
func WithLogger(logger gcpauth.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// NewClient creates a Client authenticating with tm. The first token is
// minted immediately so credential problems surface here.
func NewClient(ctx context.Context, tm *gcpauth.TokenManager, opts ...Option) (*Client, error) {
	cfg := config{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&cfg)
	}

	if tm == nil {
		return nil, apierr.Auth("kms.NewClient", errNilTokenManager)
	}
	if _, err := tm.GetToken(ctx); err != nil {
		return nil, err
	}

	builder := grpcclient.NewBuilder().
		WithAddress(cfg.endpoint).
		WithTokenManager(tm).
		WithDialOptions(cfg.dialOpts...)
	if cfg.insecure {
		builder = builder.WithInsecure()
	}

	conn, err := builder.Build()
	if err != nil {
		return nil, apierr.Transport("kms.NewClient", err)
	}

	return &Client{
		tm:     tm,
		conn:   conn,
		kms:    kmspb.NewKeyManagementServiceClient(conn),
		logger: cfg.logger,
	}, nil
}

// NewDefaultClient creates a Client from Application Default Credentials.
func NewDefaultClient(ctx context.Context, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewDefaultTokenManager(ctx, Scopes)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, tm, opts...)
}

// NewClientFromFile creates a Client from a credential file.
func NewClientFromFile(ctx context.Context, path string, opts ...Option) (*Client, error) {
	tm, err := gcpauth.NewTokenManagerFromFile(ctx, path, Scopes)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, tm, opts...)
}

// TokenManager returns the token cache used by the client.
func (c *Client) TokenManager() *gcpauth.TokenManager {
	return c.tm
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
