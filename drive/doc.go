// Package drive uploads files to Google Drive and reads their metadata.
//
// Upload follows the two-step resumable protocol. A session is opened with
// the file metadata and the content is then sent with a single PUT. File
// metadata uses the google.golang.org/api/drive/v3 File type, and Get goes
// through the Drive v3 service sharing the client's authenticated transport.
//
//	client, err := drive.NewClientFromFile(ctx, "credentials.json")
//	if err != nil {
//	    return err
//	}
//	file, err := client.Upload(ctx, data, &drivev3.File{Name: "test.rb", MimeType: "text/plain"})
package drive
