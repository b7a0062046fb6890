package grpcclient

import (
	"context"
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	itestutil "github.com/AmmannChristian/go-gcpapis/internal/testutil"
	"github.com/AmmannChristian/go-gcpapis/testutil"
)

func TestNewBuilder(t *testing.T) {
	builder := NewBuilder()

	if builder == nil {
		t.Fatal("builder should not be nil")
	}
	if builder.insecure {
		t.Error("builder should default to TLS")
	}
}

func TestBuilder_WithAddress(t *testing.T) {
	builder := NewBuilder().WithAddress("pubsub.googleapis.com:443")

	if builder.address != "pubsub.googleapis.com:443" {
		t.Errorf("expected address 'pubsub.googleapis.com:443', got '%s'", builder.address)
	}
}

func TestBuilder_WithTokenManager(t *testing.T) {
	tm := testutil.NewStaticTokenManager(t, "grpc-token")

	builder := NewBuilder().WithTokenManager(tm)

	if builder.tokenManager != tm {
		t.Error("TokenManager not set correctly")
	}
}

func TestBuilder_WithTLS(t *testing.T) {
	builder := NewBuilder().WithTLS("/path/to/ca.crt", "cloudkms.googleapis.com")

	if builder.tlsCAFile != "/path/to/ca.crt" {
		t.Errorf("unexpected CA file: %s", builder.tlsCAFile)
	}
	if builder.tlsServerName != "cloudkms.googleapis.com" {
		t.Errorf("unexpected server name: %s", builder.tlsServerName)
	}
}

func TestBuilder_WithInsecure(t *testing.T) {
	if !NewBuilder().WithInsecure().insecure {
		t.Error("insecure should be enabled")
	}
}

func TestBuilder_WithDialOptions(t *testing.T) {
	builder := NewBuilder().
		WithDialOptions(grpc.WithUserAgent("a")).
		WithDialOptions(grpc.WithUserAgent("b"), grpc.WithUserAgent("c"))

	if len(builder.dialOpts) != 3 {
		t.Errorf("expected 3 dial options, got %d", len(builder.dialOpts))
	}
}

func TestBuilder_Build_NoAddress(t *testing.T) {
	_, err := NewBuilder().Build()
	if err == nil {
		t.Fatal("expected error for missing address")
	}
	if !strings.Contains(err.Error(), "address is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuilder_Build_WithAddress(t *testing.T) {
	conn, err := NewBuilder().WithAddress("localhost:9090").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if conn.Target() != "localhost:9090" {
		t.Errorf("unexpected target: %s", conn.Target())
	}
}

func TestBuilder_BuildTLSConfig(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	itestutil.WriteTestCACert(t, caFile)

	builder := NewBuilder().WithTLS(caFile, "kms.internal")
	tlsConfig, err := builder.buildTLSConfig()
	if err != nil {
		t.Fatalf("buildTLSConfig failed: %v", err)
	}

	if tlsConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS 1.2, got %d", tlsConfig.MinVersion)
	}
	if tlsConfig.RootCAs == nil {
		t.Error("RootCAs should be configured from CA file")
	}
	if tlsConfig.ServerName != "kms.internal" {
		t.Errorf("unexpected server name: %s", tlsConfig.ServerName)
	}
}

func TestBuilder_BuildTLSConfig_SystemRoots(t *testing.T) {
	tlsConfig, err := NewBuilder().buildTLSConfig()
	if err != nil {
		t.Fatalf("buildTLSConfig failed: %v", err)
	}
	if tlsConfig.RootCAs != nil {
		t.Error("RootCAs should be nil to use system roots")
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAFile(t *testing.T) {
	_, err := NewBuilder().WithAddress("localhost:9090").WithTLS("/nonexistent/ca.crt", "").Build()
	if err == nil {
		t.Fatal("expected error for missing CA file")
	}
	if !strings.Contains(err.Error(), "TLS config failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAContent(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(caFile, []byte("invalid"), 0o600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}

	if _, err := NewBuilder().WithTLS(caFile, "").buildTLSConfig(); err == nil {
		t.Error("expected error for invalid CA content")
	}
}

// recordingHealthServer captures the incoming metadata of the last Check call.
type recordingHealthServer struct {
	healthpb.UnimplementedHealthServer
	md metadata.MD
}

func (s *recordingHealthServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	s.md, _ = metadata.FromIncomingContext(ctx)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func TestBuilder_Build_AttachesTokenAndRequestParams(t *testing.T) {
	recorder := &recordingHealthServer{}
	server := itestutil.NewBufconnServer(t, func(s *grpc.Server) {
		healthpb.RegisterHealthServer(s, recorder)
	})

	tm, source := testutil.NewFakeTokenManager(t, "https://www.googleapis.com/auth/cloudkms")
	conn, err := NewBuilder().
		WithAddress(itestutil.BufconnTarget).
		WithTokenManager(tm).
		WithInsecure().
		WithDialOptions(server.DialOptions()...).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ctx := WithRequestParams(context.Background(), Param("name", "projects/p/locations/global/keyRings/r"))
	client := healthpb.NewHealthClient(conn)
	for i := 0; i < 2; i++ {
		if _, err := client.Check(ctx, &healthpb.HealthCheckRequest{}); err != nil {
			t.Fatalf("Check %d failed: %v", i, err)
		}
	}

	if got := recorder.md.Get("authorization"); len(got) != 1 || got[0] != "Bearer fake-token-1" {
		t.Errorf("unexpected authorization metadata: %v", got)
	}
	if got := recorder.md.Get(RequestParamsHeader); len(got) != 1 || got[0] != "name=projects/p/locations/global/keyRings/r" {
		t.Errorf("unexpected request params metadata: %v", got)
	}
	if source.Mints() != 1 {
		t.Errorf("expected a single mint, got %d", source.Mints())
	}
}

func TestBuilder_Build_DefaultHealthServer(t *testing.T) {
	server := itestutil.NewBufconnServer(t, func(s *grpc.Server) {
		healthpb.RegisterHealthServer(s, health.NewServer())
	})

	conn, err := NewBuilder().
		WithAddress(itestutil.BufconnTarget).
		WithInsecure().
		WithDialOptions(server.DialOptions()...).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("unexpected status: %v", resp.GetStatus())
	}
}

func BenchmarkBuilder_Build(b *testing.B) {
	tm := testutil.NewStaticTokenManager(b, "bench-token")
	for i := 0; i < b.N; i++ {
		conn, err := NewBuilder().WithAddress("localhost:9090").WithTokenManager(tm).Build()
		if err != nil {
			b.Fatal(err)
		}
		_ = conn.Close()
	}
}
