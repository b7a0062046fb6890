package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newTokenCommand(f *Factory) *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token for the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tm, err := f.TokenManager(cmd.Context(), scopes)
			if err != nil {
				return err
			}
			token, err := tm.GetToken(cmd.Context())
			if err != nil {
				return err
			}

			if !token.Expiry.IsZero() {
				log.Debug().
					Time("expiry", token.Expiry).
					Dur("valid_for", time.Until(token.Expiry).Round(time.Second)).
					Msg("token minted")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{"https://www.googleapis.com/auth/cloud-platform"}, "OAuth2 scope (repeatable)")
	return cmd
}
