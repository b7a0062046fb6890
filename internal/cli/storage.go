package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStorageCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storage",
		Aliases: []string{"gcs"},
		Short:   "Read, write and list Cloud Storage objects",
	}
	cmd.AddCommand(
		newStorageGetCommand(f),
		newStorageUploadCommand(f),
		newStorageListCommand(f),
	)
	return cmd
}

func newStorageGetCommand(f *Factory) *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "get <bucket> <object>",
		Short: "Download an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.StorageClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			data, err := client.Object(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			log.Info().Str("file", outFile).Int("bytes", len(data)).Msg("object downloaded")
			return nil
		},
	}
	cmd.Flags().StringVar(&outFile, "out", "", "Write the object to this file instead of stdout")
	return cmd
}

func newStorageUploadCommand(f *Factory) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <bucket> <name> <file>",
		Short: "Upload a local file as an object",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[2], err)
			}

			client, err := f.StorageClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			obj, err := client.Upload(cmd.Context(), args[0], args[1], contentType, data)
			if err != nil {
				return err
			}

			if f.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), obj)
			}
			t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Bucket", "Size", "Generation", "Content Type", "MD5"})
			t.AppendRow(table.Row{obj.Name, obj.Bucket, obj.Size, obj.Generation, obj.ContentType, obj.MD5Hash})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the object (default application/octet-stream)")
	return cmd
}

func newStorageListCommand(f *Factory) *cobra.Command {
	var (
		prefix    string
		pageSize  int
		pageToken string
	)

	cmd := &cobra.Command{
		Use:     "list <bucket>",
		Aliases: []string{"ls"},
		Short:   "List one page of objects in a bucket",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.StorageClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			page, err := client.ListObjects(cmd.Context(), args[0], prefix, pageSize, pageToken)
			if err != nil {
				return err
			}

			if f.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Size", "Content Type", "Storage Class", "MD5"})
			for _, obj := range page.Objects {
				name := obj.Name
				if obj.Prefix != "" {
					name = obj.Prefix
				}
				t.AppendRow(table.Row{name, obj.Size, obj.ContentType, obj.StorageClass, hex.EncodeToString(obj.MD5Hash)})
			}
			if page.NextPageToken != "" {
				t.AppendFooter(table.Row{"Next page token", page.NextPageToken})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list objects whose names begin with prefix")
	cmd.Flags().IntVar(&pageSize, "page-size", 100, "Maximum number of objects to return")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token of the page to return")
	return cmd
}
