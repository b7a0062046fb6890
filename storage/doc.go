// Package storage is a Cloud Storage client over the JSON REST API.
//
// Object downloads and media uploads are plain HTTP requests carrying the
// bearer token from a gcpauth.TokenManager. ListObjects fetches a single page
// through the Cloud Storage SDK, which shares the same authenticated
// *http.Client and endpoint.
//
//	client, err := storage.NewDefaultClient(ctx)
//	if err != nil {
//	    return err
//	}
//	data, err := client.Object(ctx, "my-bucket", "config/app.yaml")
//
// Non-2xx responses are returned as *apierr.Error of kind
// apierr.KindCloudStorage with the status code and response body.
package storage
