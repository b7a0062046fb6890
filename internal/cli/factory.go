package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/AmmannChristian/go-gcpapis/drive"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
	"github.com/AmmannChristian/go-gcpapis/kms"
	"github.com/AmmannChristian/go-gcpapis/pubsub"
	"github.com/AmmannChristian/go-gcpapis/storage"
)

// Factory creates configured service clients for the commands.
type Factory struct {
	v      *viper.Viper
	logger zerolog.Logger

	// TokenManagerFunc overrides how token managers are created.
	// When nil, --credentials or Application Default Credentials are used.
	TokenManagerFunc func(ctx context.Context, scopes []string) (*gcpauth.TokenManager, error)

	// DialOptions are appended to every gRPC connection.
	DialOptions []grpc.DialOption
}

// NewFactory returns a Factory with an environment-aware configuration.
func NewFactory() *Factory {
	return &Factory{
		v:      newViper(),
		logger: zerolog.Nop(),
	}
}

// Config exposes the configuration for overrides.
func (f *Factory) Config() *viper.Viper {
	return f.v
}

func (f *Factory) initLogging(w io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(f.v.GetString(LogLevelKey)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	if f.v.GetString(LogFormatKey) == "json" {
		out = w
	}

	f.logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = f.logger
}

// TokenManager returns a token manager for scopes.
func (f *Factory) TokenManager(ctx context.Context, scopes []string) (*gcpauth.TokenManager, error) {
	if f.TokenManagerFunc != nil {
		return f.TokenManagerFunc(ctx, scopes)
	}

	opts := []gcpauth.Option{gcpauth.WithLogger(&f.logger)}
	if path := f.v.GetString(CredentialsKey); path != "" {
		log.Debug().Str("path", path).Msg("using credential file")
		return gcpauth.NewTokenManagerFromFile(ctx, path, scopes, opts...)
	}
	return gcpauth.NewDefaultTokenManager(ctx, scopes, opts...)
}

// StorageClient returns a Cloud Storage client.
func (f *Factory) StorageClient(ctx context.Context) (*storage.Client, error) {
	tm, err := f.TokenManager(ctx, storage.Scopes)
	if err != nil {
		return nil, err
	}

	opts := []storage.Option{storage.WithLogger(&f.logger)}
	if ep := f.v.GetString(StorageEndpointKey); ep != "" {
		opts = append(opts, storage.WithEndpoint(ep))
	}
	if ep := f.v.GetString(StorageUploadEndpointKey); ep != "" {
		opts = append(opts, storage.WithUploadEndpoint(ep))
	}
	return storage.NewClient(tm, opts...)
}

// KMSClient returns a Cloud KMS client. The caller closes it.
func (f *Factory) KMSClient(ctx context.Context) (*kms.Client, error) {
	tm, err := f.TokenManager(ctx, kms.Scopes)
	if err != nil {
		return nil, err
	}

	opts := []kms.Option{kms.WithLogger(&f.logger), kms.WithDialOptions(f.DialOptions...)}
	if ep := f.v.GetString(KMSEndpointKey); ep != "" {
		opts = append(opts, kms.WithEndpoint(ep))
	}
	if f.v.GetBool(KMSInsecureKey) {
		opts = append(opts, kms.WithInsecure())
	}
	return kms.NewClient(ctx, tm, opts...)
}

// PubSubClient returns a Pub/Sub client, honoring PUBSUB_EMULATOR_HOST.
// The caller closes it.
func (f *Factory) PubSubClient(ctx context.Context) (*pubsub.Client, error) {
	opts := []pubsub.Option{pubsub.WithLogger(&f.logger), pubsub.WithDialOptions(f.DialOptions...)}

	if host := os.Getenv(pubsub.EmulatorHostEnv); host != "" {
		log.Debug().Str("host", host).Msg("using Pub/Sub emulator")
		return pubsub.NewEmulatorClient(ctx, host, opts...)
	}

	tm, err := f.TokenManager(ctx, pubsub.Scopes)
	if err != nil {
		return nil, err
	}
	if ep := f.v.GetString(PubSubEndpointKey); ep != "" {
		opts = append(opts, pubsub.WithEndpoint(ep))
	}
	if f.v.GetBool(PubSubInsecureKey) {
		opts = append(opts, pubsub.WithInsecure())
	}
	return pubsub.NewClient(ctx, tm, opts...)
}

// DriveClient returns a Google Drive client.
func (f *Factory) DriveClient(ctx context.Context) (*drive.Client, error) {
	tm, err := f.TokenManager(ctx, drive.DefaultScopes)
	if err != nil {
		return nil, err
	}

	opts := []drive.Option{drive.WithLogger(&f.logger)}
	if ep := f.v.GetString(DriveEndpointKey); ep != "" {
		opts = append(opts, drive.WithEndpoint(ep))
	}
	return drive.NewClient(tm, opts...)
}
