package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

func newDriveCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Upload files to Google Drive and read their metadata",
	}
	cmd.AddCommand(
		newDriveUploadCommand(f),
		newDriveGetCommand(f),
	)
	return cmd
}

func newDriveUploadCommand(f *Factory) *cobra.Command {
	var (
		name     string
		mimeType string
		parents  []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			metadata := &drivev3.File{
				Name:     name,
				MimeType: mimeType,
				Parents:  parents,
			}
			if metadata.Name == "" {
				metadata.Name = filepath.Base(args[0])
			}
			if metadata.MimeType == "" {
				metadata.MimeType = detectMimeType(args[0])
			}

			client, err := f.DriveClient(cmd.Context())
			if err != nil {
				return err
			}

			file, err := client.Upload(cmd.Context(), data, metadata)
			if err != nil {
				return err
			}
			return printDriveFile(f, cmd, file)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the Drive file (default: the local file name)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "MIME type (default: detected from the extension)")
	cmd.Flags().StringSliceVar(&parents, "parent", nil, "Parent folder ID (repeatable)")
	return cmd
}

func newDriveGetCommand(f *Factory) *cobra.Command {
	var fields string

	cmd := &cobra.Command{
		Use:   "get <file id>",
		Short: "Show the metadata of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.DriveClient(cmd.Context())
			if err != nil {
				return err
			}

			var selected []googleapi.Field
			if fields != "" {
				selected = append(selected, googleapi.Field(fields))
			}
			file, err := client.Get(cmd.Context(), args[0], selected...)
			if err != nil {
				return err
			}
			return printDriveFile(f, cmd, file)
		},
	}
	cmd.Flags().StringVar(&fields, "fields", "id,name,mimeType,size,modifiedTime,webViewLink", "Fields to request")
	return cmd
}

func printDriveFile(f *Factory, cmd *cobra.Command, file *drivev3.File) error {
	if f.jsonOutput() {
		return writeJSON(cmd.OutOrStdout(), file)
	}
	t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "MIME Type", "Size", "Modified"})
	t.AppendRow(table.Row{file.Id, file.Name, file.MimeType, file.Size, file.ModifiedTime})
	t.Render()
	return nil
}

func detectMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
