// Package cli implements the gcpapis command line tool.
package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	LogLevelKey  = "log.level"
	LogFormatKey = "log.format"
	OutputKey    = "output"

	CredentialsKey = "credentials"

	StorageEndpointKey       = "storage.endpoint"
	StorageUploadEndpointKey = "storage.upload_endpoint"
	KMSEndpointKey           = "kms.endpoint"
	KMSInsecureKey           = "kms.insecure"
	PubSubEndpointKey        = "pubsub.endpoint"
	PubSubInsecureKey        = "pubsub.insecure"
	DriveEndpointKey         = "drive.endpoint"
)

// NewRootCommand builds the command tree around f.
func NewRootCommand(f *Factory) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "gcpapis",
		Short: "Command line access to Cloud Storage, Cloud KMS, Pub/Sub and Google Drive",
		Long: `gcpapis talks to Google Cloud APIs with one cached access token per service.
Credentials come from --credentials or Application Default Credentials.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath, configErr := f.initConfig(configFile)
			f.initLogging(cmd.ErrOrStderr())
			if configErr != nil { // handle error after logging is initialized
				return configErr
			}
			if configPath != "" {
				log.Debug().Msgf("using config file: %s", configPath)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default is .gcpapis.yaml in the current dir or $HOME)")

	pf.String("credentials", "", "Credential JSON file (default: Application Default Credentials)")
	_ = f.v.BindPFlag(CredentialsKey, pf.Lookup("credentials"))

	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = f.v.BindPFlag(LogLevelKey, pf.Lookup("log-level"))

	pf.String("log-format", "console", "Log format (console, json)")
	_ = f.v.BindPFlag(LogFormatKey, pf.Lookup("log-format"))

	pf.StringP("output", "o", "table", "Output format for listings (table, json)")
	_ = f.v.BindPFlag(OutputKey, pf.Lookup("output"))

	root.AddCommand(
		newStorageCommand(f),
		newKMSCommand(f),
		newPubSubCommand(f),
		newDriveCommand(f),
		newTokenCommand(f),
	)

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	f := NewFactory()
	if err := NewRootCommand(f).Execute(); err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GCPAPIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	return v
}

// initConfig reads the config file, if any, and returns its path.
func (f *Factory) initConfig(configFile string) (string, error) {
	if configFile != "" {
		f.v.SetConfigFile(configFile)
	} else {
		f.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			f.v.AddConfigPath(home)
		}
		f.v.SetConfigType("yaml")
		f.v.SetConfigName(".gcpapis")
	}

	if err := f.v.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
		return "", nil
	}
	return f.v.ConfigFileUsed(), nil
}
