package drive

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

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/AmmannChristian/go-gcpapis/apierr"
)

const (
	uploadPath = "upload/drive/v3/files"

	headerUploadContentType   = "X-Upload-Content-Type"
	headerUploadContentLength = "X-Upload-Content-Length"

	maxErrorBody = 64 << 10
)

var (
	// ErrResumeURLNotFound is returned when the resumable session response
	// carries no Location header. The response body is kept in apierr.Error.Body.
	ErrResumeURLNotFound = errors.New("drive: resume URL not found in response headers")

	// ErrUnexpectedResponse is returned for a response with an unexpected status.
	ErrUnexpectedResponse = errors.New("drive: unexpected response")
)

// BuildURI resolves path against endpoint and appends params to the query.
// A leading slash on path is optional.
func BuildURI(endpoint, path string, params url.Values) (*url.URL, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("drive: invalid endpoint %q: %w", endpoint, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("drive: invalid path %q: %w", path, err)
	}

	u := base.ResolveReference(ref)
	if len(params) > 0 {
		q := u.Query()
		for k, vals := range params {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// Upload creates a file from data using a resumable session: the metadata is
// posted first, then data is PUT to the returned session URL in one request.
// metadata.MimeType is used as the content type of data.
func (c *Client) Upload(ctx context.Context, data []byte, metadata *drivev3.File) (*drivev3.File, error) {
	const op = "drive.Upload"

	if metadata == nil {
		metadata = &drivev3.File{}
	}

	resumeURL, err := c.resumeURL(ctx, op, data, metadata)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, resumeURL, bytes.NewReader(data))
	if err != nil {
		return nil, apierr.Convert(op, err)
	}
	req.Header.Set("Content-Type", metadata.MimeType)
	req.ContentLength = int64(len(data))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.Transport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, unexpected(op, resp)
	}

	var file drivev3.File
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, apierr.Convert(op, fmt.Errorf("decode file: %w", err))
	}

	c.logf("drive: uploaded %q (%d bytes) as %s", file.Name, len(data), file.Id)
	return &file, nil
}

// resumeURL opens a resumable upload session and returns its URL.
func (c *Client) resumeURL(ctx context.Context, op string, data []byte, metadata *drivev3.File) (string, error) {
	u, err := BuildURI(c.endpoint, uploadPath, url.Values{"uploadType": {"resumable"}})
	if err != nil {
		return "", apierr.Convert(op, err)
	}

	body, err := json.Marshal(metadata)
	if err != nil {
		return "", apierr.Convert(op, fmt.Errorf("encode metadata: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", apierr.Convert(op, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set(headerUploadContentType, metadata.MimeType)
	req.Header.Set(headerUploadContentLength, strconv.Itoa(len(data)))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apierr.Transport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", unexpected(op, resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apierr.Response(apierr.KindGoogleDrive, op, resp.StatusCode, string(text), ErrResumeURLNotFound)
	}
	return location, nil
}

// Get returns the metadata of fileID through the Drive v3 API. Without
// fields the API default field set is returned.
func (c *Client) Get(ctx context.Context, fileID string, fields ...googleapi.Field) (*drivev3.File, error) {
	const op = "drive.Get"

	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Files.Get(fileID).Context(ctx)
	if len(fields) > 0 {
		call = call.Fields(fields...)
	}

	file, err := call.Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, apierr.Response(apierr.KindGoogleDrive, op, gerr.Code, gerr.Body, err)
		}
		return nil, apierr.Transport(op, err)
	}

	c.logf("drive: fetched metadata of %s", fileID)
	return file, nil
}

func unexpected(op string, resp *http.Response) error {
	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return apierr.Response(apierr.KindGoogleDrive, op, resp.StatusCode, string(text), ErrUnexpectedResponse)
}
