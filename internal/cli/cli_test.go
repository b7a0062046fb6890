package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	itestutil "github.com/AmmannChristian/go-gcpapis/internal/testutil"
	"github.com/AmmannChristian/go-gcpapis/testutil"
)

type result struct {
	stdout string
	stderr string
}

func newTestFactory(t *testing.T) (*Factory, *testutil.FakeCredentialSource) {
	t.Helper()

	source := &testutil.FakeCredentialSource{}
	f := NewFactory()
	f.TokenManagerFunc = func(_ context.Context, scopes []string) (*gcpauth.TokenManager, error) {
		return gcpauth.NewTokenManager(source, scopes), nil
	}
	return f, source
}

func runCommand(t *testing.T, f *Factory, args ...string) (result, error) {
	t.Helper()

	// Point at an empty config so a file in the working or home directory is never read.
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))
	if !containsFlag(args, "--config") {
		args = append([]string{"--config", configPath}, args...)
	}

	cmd := NewRootCommand(f)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String()}, err
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "none", pairs: nil, want: nil},
		{name: "single", pairs: []string{"origin=cli"}, want: map[string]string{"origin": "cli"}},
		{name: "empty value", pairs: []string{"flag="}, want: map[string]string{"flag": ""}},
		{name: "value with equals", pairs: []string{"q=a=b"}, want: map[string]string{"q": "a=b"}},
		{name: "later wins", pairs: []string{"k=1", "k=2"}, want: map[string]string{"k": "2"}},
		{name: "missing separator", pairs: []string{"novalue"}, wantErr: true},
		{name: "empty key", pairs: []string{"=v"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAttributes(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAttributes(t *testing.T) {
	assert.Equal(t, "", formatAttributes(nil))
	assert.Equal(t, "a=1,b=2,c=3", formatAttributes(map[string]string{"c": "3", "a": "1", "b": "2"}))
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/json", detectMimeType("data.json"))
	assert.Equal(t, "application/octet-stream", detectMimeType("blob.unknownext"))
	assert.Equal(t, "application/octet-stream", detectMimeType("Makefile"))
}

func TestFormatKeyState(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	assert.Equal(t, "enabled", formatKeyState(kmspb.CryptoKeyVersion_ENABLED))
	assert.Equal(t, "disabled", formatKeyState(kmspb.CryptoKeyVersion_DISABLED))
	assert.Equal(t, "destroy_scheduled", formatKeyState(kmspb.CryptoKeyVersion_DESTROY_SCHEDULED))
	assert.Equal(t, "-", formatKeyState(kmspb.CryptoKeyVersion_CRYPTO_KEY_VERSION_STATE_UNSPECIFIED))
	assert.Equal(t, "pending_generation", formatKeyState(kmspb.CryptoKeyVersion_PENDING_GENERATION))
}

func TestStorageGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/b/test-bucket/o/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		assert.Equal(t, "Bearer fake-token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("hello gcs"))
	})
	server := itestutil.NewLocalHTTPServer(t, mux)

	f, source := newTestFactory(t)
	f.Config().Set(StorageEndpointKey, server.URL+"/storage/v1")

	res, err := runCommand(t, f, "storage", "get", "test-bucket", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello gcs", res.stdout)
	require.Len(t, source.Scopes(), 1)
	assert.Contains(t, source.Scopes()[0], "https://www.googleapis.com/auth/devstorage.full_control")
}

func TestStorageGet_ToFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/b/test-bucket/o/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("saved"))
	})
	server := itestutil.NewLocalHTTPServer(t, mux)

	f, _ := newTestFactory(t)
	f.Config().Set(StorageEndpointKey, server.URL+"/storage/v1")

	out := filepath.Join(t.TempDir(), "notes.txt")
	res, err := runCommand(t, f, "storage", "get", "test-bucket", "notes.txt", "--out", out)
	require.NoError(t, err)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "saved", string(data))
}

func TestStorageGet_ErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "No such object", http.StatusNotFound)
	})
	server := itestutil.NewLocalHTTPServer(t, mux)

	f, _ := newTestFactory(t)
	f.Config().Set(StorageEndpointKey, server.URL+"/storage/v1")

	_, err := runCommand(t, f, "storage", "get", "test-bucket", "missing.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestConfigFile(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/custom/v1/b/cfg-bucket/o/a.txt", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("from config"))
	})
	server := itestutil.NewLocalHTTPServer(t, mux)

	configPath := filepath.Join(t.TempDir(), "gcpapis.yaml")
	config := "log:\n  level: debug\n  format: json\nstorage:\n  endpoint: " + server.URL + "/custom/v1\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))

	f, _ := newTestFactory(t)
	res, err := runCommand(t, f, "--config", configPath, "storage", "get", "cfg-bucket", "a.txt")
	require.NoError(t, err)

	assert.Equal(t, "from config", res.stdout)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, res.stderr, `"level":"debug"`)
	assert.Contains(t, res.stderr, "using config file")
}

func TestConfigFile_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage: [unclosed\n"), 0o600))

	f, source := newTestFactory(t)
	_, err := runCommand(t, f, "--config", configPath, "token")
	require.Error(t, err)
	assert.Equal(t, 0, source.Mints())
}

func TestTokenCommand(t *testing.T) {
	f, source := newTestFactory(t)

	res, err := runCommand(t, f, "token", "--scope", "https://www.googleapis.com/auth/drive")
	require.NoError(t, err)
	assert.Equal(t, "fake-token-1\n", res.stdout)
	assert.Equal(t, [][]string{{"https://www.googleapis.com/auth/drive"}}, source.Scopes())
}

func TestKMSDecrypt_InvalidCiphertext(t *testing.T) {
	f, source := newTestFactory(t)

	_, err := runCommand(t, f, "kms", "decrypt", "projects/p/locations/l/keyRings/r/cryptoKeys/k", "not base64!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode ciphertext")
	assert.Equal(t, 0, source.Mints(), "no client for bad input")
}

func TestPubSubPublish_InvalidAttribute(t *testing.T) {
	f, source := newTestFactory(t)

	_, err := runCommand(t, f, "pubsub", "publish", "projects/p/topics/t", "hello", "-a", "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attribute")
	assert.Equal(t, 0, source.Mints())
}

func TestDriveUpload(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		var meta map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "report.json", meta["name"])
		assert.Equal(t, "application/json", meta["mimeType"])
		assert.Equal(t, []any{"folder-1"}, meta["parents"])

		w.Header().Set("Location", serverURL+"/session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"id":"drive-file-1","name":"report.json","mimeType":"application/json"}`))
	})
	server := itestutil.NewLocalHTTPServer(t, mux)
	serverURL = server.URL

	local := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"ok":true}`), 0o600))

	f, source := newTestFactory(t)
	f.Config().Set(DriveEndpointKey, server.URL)

	res, err := runCommand(t, f, "drive", "upload", local, "--parent", "folder-1")
	require.NoError(t, err)
	assert.Contains(t, res.stdout, "drive-file-1")
	assert.Contains(t, res.stdout, "report.json")
	assert.Equal(t, 1, source.Mints())
}

func TestDriveGet_JSONOutput(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/v3/files/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","name":"notes.md"}`))
	})
	server := itestutil.NewLocalHTTPServer(t, mux)

	f, _ := newTestFactory(t)
	f.Config().Set(DriveEndpointKey, server.URL)

	res, err := runCommand(t, f, "-o", "json", "drive", "get", "abc", "--fields", "id,name")
	require.NoError(t, err)

	var file map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &file))
	assert.Equal(t, "abc", file["id"])
	assert.Equal(t, "notes.md", file["name"])
}

func TestInitLogging(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json debug",
			level:  "debug",
			format: "json",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `"message":"probe"`)
			},
		},
		{
			name:   "unknown level falls back to info",
			level:  "chatty",
			format: "json",
			check: func(t *testing.T, out string) {
				assert.Empty(t, out)
			},
		},
		{
			name:   "console",
			level:  "DEBUG",
			format: "console",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "probe")
				assert.NotContains(t, out, `"message"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory()
			f.Config().Set(LogLevelKey, tt.level)
			f.Config().Set(LogFormatKey, tt.format)

			var buf bytes.Buffer
			f.initLogging(&buf)
			f.logger.Debug().Msg("probe")
			tt.check(t, buf.String())
		})
	}
}

func TestCommandTree(t *testing.T) {
	root := NewRootCommand(NewFactory())

	for _, path := range [][]string{
		{"storage", "get"},
		{"storage", "upload"},
		{"storage", "list"},
		{"kms", "keyrings"},
		{"kms", "keys"},
		{"kms", "encrypt"},
		{"kms", "decrypt"},
		{"pubsub", "publish"},
		{"pubsub", "pull"},
		{"pubsub", "ack"},
		{"drive", "upload"},
		{"drive", "get"},
		{"token"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
