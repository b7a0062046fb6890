package grpcclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AmmannChristian/go-gcpapis/gcpauth"
)

// Builder provides a fluent interface for constructing gRPC client connections
// to Google APIs, authenticated by a gcpauth.TokenManager.
type Builder struct {
	address      string
	tokenManager *gcpauth.TokenManager

	// TLS configuration
	insecure      bool
	tlsCAFile     string
	tlsServerName string

	// Additional dial options
	dialOpts []grpc.DialOption
}

// NewBuilder creates a new gRPC client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithAddress sets the server address (e.g., "cloudkms.googleapis.com:443").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithTokenManager attaches unary and stream interceptors that send the
// cached access token on every call.
func (b *Builder) WithTokenManager(tm *gcpauth.TokenManager) *Builder {
	b.tokenManager = tm
	return b
}

// WithTLS trusts the CA certificate in caFile and optionally overrides the
// expected server name. Both arguments may be empty.
func (b *Builder) WithTLS(caFile, serverName string) *Builder {
	b.tlsCAFile = caFile
	b.tlsServerName = serverName
	return b
}

// WithInsecure dials without transport security. Only meant for emulators.
func (b *Builder) WithInsecure() *Builder {
	b.insecure = true
	return b
}

// WithDialOptions adds custom gRPC dial options.
// These options are applied after the auth and TLS options.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// Build constructs the gRPC client connection with the configured options.
// The connection is established lazily on the first call.
func (b *Builder) Build() (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}

	var opts []grpc.DialOption

	if b.tokenManager != nil {
		opts = append(opts,
			grpc.WithUnaryInterceptor(b.tokenManager.UnaryClientInterceptor()),
			grpc.WithStreamInterceptor(b.tokenManager.StreamClientInterceptor()),
		)
	}

	if b.insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	}

	opts = append(opts, b.dialOpts...)

	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}

	return conn, nil
}

// buildTLSConfig constructs the TLS configuration for the gRPC connection.
// Without a CA file the system roots are used.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	if b.tlsServerName != "" {
		tlsConfig.ServerName = b.tlsServerName
	}

	return tlsConfig, nil
}
