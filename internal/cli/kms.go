package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newKMSCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kms",
		Short: "List Cloud KMS keys and encrypt or decrypt data",
	}
	cmd.AddCommand(
		newKMSKeyRingsCommand(f),
		newKMSKeysCommand(f),
		newKMSEncryptCommand(f),
		newKMSDecryptCommand(f),
	)
	return cmd
}

func newKMSKeyRingsCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "keyrings <projects/P/locations/L>",
		Short: "List key rings of a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.KMSClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.ListKeyRings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), resp)
			}

			t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Created"})
			for _, ring := range resp.GetKeyRings() {
				created := ""
				if ts := ring.GetCreateTime(); ts != nil {
					created = ts.AsTime().Format("2006-01-02 15:04:05")
				}
				t.AppendRow(table.Row{ring.GetName(), created})
			}
			t.AppendFooter(table.Row{"Total", resp.GetTotalSize()})
			t.Render()
			return nil
		},
	}
}

func newKMSKeysCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <projects/P/locations/L/keyRings/R>",
		Short: "List crypto keys of a key ring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.KMSClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.ListCryptoKeys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), resp)
			}

			t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Purpose", "Primary State"})
			for _, key := range resp.GetCryptoKeys() {
				t.AppendRow(table.Row{key.GetName(), key.GetPurpose().String(), formatKeyState(key.GetPrimary().GetState())})
			}
			t.AppendFooter(table.Row{"Total", resp.GetTotalSize()})
			t.Render()
			return nil
		},
	}
}

func newKMSEncryptCommand(f *Factory) *cobra.Command {
	var inFile string

	cmd := &cobra.Command{
		Use:   "encrypt <key name>",
		Short: "Encrypt a file or stdin and print the base64 ciphertext",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readInput(cmd.InOrStdin(), inFile)
			if err != nil {
				return err
			}

			client, err := f.KMSClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.Encrypt(cmd.Context(), args[0], plaintext)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(resp.GetCiphertext()))
			return err
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "Read plaintext from this file instead of stdin")
	return cmd
}

func newKMSDecryptCommand(f *Factory) *cobra.Command {
	var inFile string

	cmd := &cobra.Command{
		Use:   "decrypt <key name> [base64 ciphertext]",
		Short: "Decrypt base64 ciphertext from an argument, a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var encoded []byte
			if len(args) == 2 {
				encoded = []byte(args[1])
			} else {
				var err error
				if encoded, err = readInput(cmd.InOrStdin(), inFile); err != nil {
					return err
				}
			}
			ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
			if err != nil {
				return fmt.Errorf("decode ciphertext: %w", err)
			}

			client, err := f.KMSClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.Decrypt(cmd.Context(), args[0], ciphertext)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(resp.GetPlaintext())
			return err
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "Read base64 ciphertext from this file instead of stdin")
	return cmd
}

func formatKeyState(state kmspb.CryptoKeyVersion_CryptoKeyVersionState) string {
	switch state {
	case kmspb.CryptoKeyVersion_ENABLED:
		return color.GreenString("enabled")
	case kmspb.CryptoKeyVersion_DISABLED:
		return color.YellowString("disabled")
	case kmspb.CryptoKeyVersion_DESTROYED, kmspb.CryptoKeyVersion_DESTROY_SCHEDULED:
		return color.RedString(strings.ToLower(state.String()))
	case kmspb.CryptoKeyVersion_CRYPTO_KEY_VERSION_STATE_UNSPECIFIED:
		return color.New(color.Faint).Sprint("-")
	default:
		return strings.ToLower(state.String())
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
	return io.ReadAll(stdin)
}
