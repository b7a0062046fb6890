package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/AmmannChristian/go-gcpapis/apierr"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 64 << 10

// BuildURI returns {endpoint}/b/{bucket} and, when object is non-empty,
// /o/{object}. Bucket and object are escaped as single path segments, so
// "dir/file.yaml" becomes "dir%2Ffile.yaml".
func BuildURI(endpoint, bucket, object string) (*url.URL, error) {
	raw := strings.TrimSuffix(endpoint, "/") + "/b/" + url.PathEscape(bucket)
	if object != "" {
		raw += "/o/" + url.PathEscape(object)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("storage: invalid endpoint %q: %w", endpoint, err)
	}
	return u, nil
}

// Object downloads the content of bucket/object.
func (c *Client) Object(ctx context.Context, bucket, object string) ([]byte, error) {
	const op = "storage.Object"

	u, err := BuildURI(c.endpoint, bucket, object)
	if err != nil {
		return nil, apierr.Convert(op, err)
	}
	u.RawQuery = url.Values{"alt": {"media"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apierr.Convert(op, err)
	}

	c.logf("storage: GET gs://%s/%s", bucket, object)
	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Upload stores data as bucket/name with a single media upload and returns
// the resulting object resource.
func (c *Client) Upload(ctx context.Context, bucket, name, contentType string, data []byte) (*ObjectResource, error) {
	const op = "storage.Upload"

	if name == "" {
		return nil, apierr.Convert(op, errors.New("storage: object name is required"))
	}

	u, err := url.Parse(c.uploadEndpoint + "/b/" + url.PathEscape(bucket) + "/o")
	if err != nil {
		return nil, apierr.Convert(op, err)
	}
	u.RawQuery = url.Values{"uploadType": {"media"}, "name": {name}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, apierr.Convert(op, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(data)))

	c.logf("storage: upload gs://%s/%s (%d bytes)", bucket, name, len(data))
	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var obj ObjectResource
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, apierr.Convert(op, fmt.Errorf("decode object resource: %w", err))
	}
	return &obj, nil
}

// ListObjects returns a single page of objects in bucket whose names start
// with prefix. pageToken continues a previous listing; pass "" to start.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string, pageSize int, pageToken string) (*ObjectPage, error) {
	const op = "storage.ListObjects"

	sdk, err := c.sdkClient(ctx)
	if err != nil {
		return nil, err
	}

	it := sdk.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	pager := iterator.NewPager(it, pageSize, pageToken)

	var attrs []*gcs.ObjectAttrs
	next, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, listError(op, err)
	}

	page := &ObjectPage{
		Objects:       make([]ObjectSummary, 0, len(attrs)),
		NextPageToken: next,
	}
	for _, a := range attrs {
		page.Objects = append(page.Objects, ObjectSummary{
			Name:         a.Name,
			Bucket:       a.Bucket,
			ContentType:  a.ContentType,
			Size:         a.Size,
			Generation:   a.Generation,
			StorageClass: a.StorageClass,
			MD5Hash:      a.MD5,
			Prefix:       a.Prefix,
		})
	}

	c.logf("storage: listed %d objects in gs://%s", len(page.Objects), bucket)
	return page, nil
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.Transport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apierr.Response(apierr.KindCloudStorage, op, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Transport(op, err)
	}
	return body, nil
}

// listError maps SDK listing failures. A missing bucket surfaces as a
// CloudStorage error with status 404.
func listError(op string, err error) error {
	if errors.Is(err, gcs.ErrBucketNotExist) {
		return apierr.Response(apierr.KindCloudStorage, op, http.StatusNotFound, "", err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return apierr.Response(apierr.KindCloudStorage, op, gerr.Code, gerr.Body, err)
	}
	return apierr.Transport(op, err)
}
