package pubsub

import (
	"context"
	"errors"
	"os"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"google.golang.org/grpc"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	"github.com/AmmannChristian/go-gcpapis/grpcclient"
)

const (
	// DefaultEndpoint is the Pub/Sub gRPC endpoint.
	DefaultEndpoint = "pubsub.googleapis.com:443"
	// EmulatorHostEnv names the environment variable pointing at a local emulator.
	EmulatorHostEnv = "PUBSUB_EMULATOR_HOST"
)

// Scopes are the OAuth2 scopes requested for Pub/Sub.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/pubsub",
}

var errNilTokenManager = errors.New("pubsub: token manager is nil")

// Client publishes to topics and pulls from subscriptions over one
// connection. It is safe for concurrent use.
type Client struct {
	tm         *gcpauth.TokenManager
	conn       *grpc.ClientConn
	publisher  pubsubpb.PublisherClient
	subscriber pubsubpb.SubscriberClient
	logger     gcpauth.Logger
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
		return nil, apierr.Auth("pubsub.NewClient", errNilTokenManager)
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
		return nil, apierr.Transport("pubsub.NewClient", err)
	}

	return &Client{
		tm:         tm,
		conn:       conn,
		publisher:  pubsubpb.NewPublisherClient(conn),
		subscriber: pubsubpb.NewSubscriberClient(conn),
		logger:     cfg.logger,
	}, nil
}

// NewDefaultClient creates a Client from Application Default Credentials.
// When PUBSUB_EMULATOR_HOST is set it instead connects to the emulator in
// plaintext with a placeholder token.
func NewDefaultClient(ctx context.Context, opts ...Option) (*Client, error) {
	if host := os.Getenv(EmulatorHostEnv); host != "" {
		return NewEmulatorClient(ctx, host, opts...)
	}

	tm, err := gcpauth.NewDefaultTokenManager(ctx, Scopes)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, tm, opts...)
}

// NewEmulatorClient connects to a Pub/Sub emulator at host without TLS.
// The emulator ignores credentials, so no real token is minted.
func NewEmulatorClient(ctx context.Context, host string, opts ...Option) (*Client, error) {
	source := gcpauth.CredentialSourceFunc(func(context.Context, []string) (*gcpauth.Token, error) {
		return &gcpauth.Token{AccessToken: "emulator"}, nil
	})
	opts = append([]Option{WithEndpoint(host), WithInsecure()}, opts...)
	return NewClient(ctx, gcpauth.NewTokenManager(source, Scopes), opts...)
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
