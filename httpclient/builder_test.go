package httpclient

import (
	"crypto/tls"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	itestutil "github.com/AmmannChristian/go-gcpapis/internal/testutil"
	"github.com/AmmannChristian/go-gcpapis/testutil"
)

func TestNewBuilder(t *testing.T) {
	builder := NewBuilder()

	if builder == nil {
		t.Fatal("builder should not be nil")
	}
	if builder.timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", builder.timeout)
	}
	if !builder.followRedirects {
		t.Error("redirects should be enabled by default")
	}
}

func TestBuilder_WithTokenManager(t *testing.T) {
	tm := testutil.NewStaticTokenManager(t, "static-token")

	builder := NewBuilder().WithTokenManager(tm)

	if builder.tokenManager != tm {
		t.Error("TokenManager not set correctly")
	}
}

func TestBuilder_WithTLS(t *testing.T) {
	builder := NewBuilder().WithTLS("/path/to/ca.crt")

	if !builder.tlsEnabled {
		t.Error("TLS should be enabled")
	}
	if builder.tlsCAFile != "/path/to/ca.crt" {
		t.Errorf("unexpected CA file: %s", builder.tlsCAFile)
	}
}

func TestBuilder_Setters(t *testing.T) {
	customTransport := &http.Transport{}
	builder := NewBuilder().
		WithInsecureSkipVerify().
		WithTimeout(45 * time.Second).
		WithBaseTransport(customTransport).
		WithoutRedirects().
		WithHeader("User-Agent", "gcpapis/1.0")

	if !builder.tlsSkipVerify {
		t.Error("InsecureSkipVerify should be enabled")
	}
	if builder.timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", builder.timeout)
	}
	if builder.baseTransport != customTransport {
		t.Error("base transport not set correctly")
	}
	if builder.followRedirects {
		t.Error("redirects should be disabled")
	}
	if builder.headers.Get("User-Agent") != "gcpapis/1.0" {
		t.Errorf("unexpected headers: %v", builder.headers)
	}
}

func TestBuilder_Build_Simple(t *testing.T) {
	client, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.TLSClientConfig == nil || transport.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Error("default transport should require TLS 1.2")
	}
	if client.CheckRedirect != nil {
		t.Error("CheckRedirect should be nil when redirects are enabled")
	}
}

func TestBuilder_Build_WithTokenManager(t *testing.T) {
	tm := testutil.NewStaticTokenManager(t, "static-token")

	client, err := NewBuilder().WithTokenManager(tm).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	transport, ok := client.Transport.(*BearerTransport)
	if !ok {
		t.Fatalf("expected *BearerTransport, got %T", client.Transport)
	}
	if transport.TokenManager != tm {
		t.Error("TokenManager not set correctly")
	}
}

func TestBuilder_Build_WithTimeout(t *testing.T) {
	client, err := NewBuilder().WithTimeout(5 * time.Second).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.Timeout)
	}
}

func TestBuilder_Build_WithoutRedirects(t *testing.T) {
	client, err := NewBuilder().WithoutRedirects().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if client.CheckRedirect == nil {
		t.Fatal("CheckRedirect should be set")
	}
	if err := client.CheckRedirect(nil, nil); err != http.ErrUseLastResponse {
		t.Errorf("expected ErrUseLastResponse, got %v", err)
	}
}

func TestBuilder_Build_WithBaseTransport_AndTokenManager(t *testing.T) {
	var gotAuth, gotAgent string
	base := itestutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotAgent = req.Header.Get("User-Agent")
		return okResponse(req), nil
	})

	client, err := NewBuilder().
		WithBaseTransport(base).
		WithTokenManager(testutil.NewStaticTokenManager(t, "layered-token")).
		WithHeader("User-Agent", "gcpapis-test").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	resp, err := client.Get("https://www.googleapis.com/drive/v3/files")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if gotAuth != "Bearer layered-token" {
		t.Errorf("unexpected Authorization: %q", gotAuth)
	}
	if gotAgent != "gcpapis-test" {
		t.Errorf("unexpected User-Agent: %q", gotAgent)
	}
}

func TestBuilder_BuildTLSConfig(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	itestutil.WriteTestCACert(t, caFile)

	tests := []struct {
		name       string
		caFile     string
		skipVerify bool
		wantRoots  bool
	}{
		{name: "no CA", caFile: ""},
		{name: "skip verify", skipVerify: true},
		{name: "with CA file", caFile: caFile, wantRoots: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder()
			builder.tlsEnabled = true
			builder.tlsCAFile = tt.caFile
			builder.tlsSkipVerify = tt.skipVerify

			tlsConfig, err := builder.buildTLSConfig()
			if err != nil {
				t.Fatalf("buildTLSConfig failed: %v", err)
			}
			if tlsConfig.MinVersion != tls.VersionTLS12 {
				t.Errorf("expected TLS 1.2, got %d", tlsConfig.MinVersion)
			}
			if tlsConfig.InsecureSkipVerify != tt.skipVerify {
				t.Errorf("InsecureSkipVerify = %v, want %v", tlsConfig.InsecureSkipVerify, tt.skipVerify)
			}
			if (tlsConfig.RootCAs != nil) != tt.wantRoots {
				t.Errorf("RootCAs set = %v, want %v", tlsConfig.RootCAs != nil, tt.wantRoots)
			}
		})
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAFile(t *testing.T) {
	builder := NewBuilder()
	builder.tlsEnabled = true
	builder.tlsCAFile = "/nonexistent/ca.crt"

	if _, err := builder.buildTLSConfig(); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestBuilder_BuildTLSConfig_InvalidCAContent(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(caFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}

	_, err := NewBuilder().WithTLS(caFile).Build()
	if err == nil {
		t.Fatal("expected error for invalid CA content")
	}
	if !strings.Contains(err.Error(), "TLS config failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuilder_Build_WithTLS_UsesConfig(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	itestutil.WriteTestCACert(t, caFile)

	client, err := NewBuilder().WithTLS(caFile).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.TLSClientConfig == nil || transport.TLSClientConfig.RootCAs == nil {
		t.Error("RootCAs should be configured from CA file")
	}
}

func TestBuilder_Build_FallbackDefaultTransport(t *testing.T) {
	origDefault := http.DefaultTransport
	http.DefaultTransport = itestutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("ok")),
			Request:    req,
		}, nil
	})
	t.Cleanup(func() { http.DefaultTransport = origDefault })

	client, err := NewBuilder().WithInsecureSkipVerify().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	resp, err := client.Get("https://example.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
}

func TestBuilder_Build_Integration(t *testing.T) {
	server := itestutil.NewLocalHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer builder-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))

	client, err := NewBuilder().
		WithTokenManager(testutil.NewStaticTokenManager(t, "builder-token")).
		WithoutRedirects().
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 without following redirects, got %d", resp.StatusCode)
	}
}

func BenchmarkBuilder_Build(b *testing.B) {
	tm := testutil.NewStaticTokenManager(b, "bench-token")
	for i := 0; i < b.N; i++ {
		if _, err := NewBuilder().WithTokenManager(tm).Build(); err != nil {
			b.Fatal(err)
		}
	}
}
