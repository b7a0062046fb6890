package httpclient

import (
	"errors"
	"net/http"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/gcpauth"
)

// BearerTransport is an http.RoundTripper that adds the cached Google access
// token as "Authorization: Bearer <token>" to outgoing requests.
type BearerTransport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// TokenManager provides access tokens.
	TokenManager *gcpauth.TokenManager
}

// RoundTrip implements http.RoundTripper. The token is fetched with the
// request context; a failure aborts the request with an apierr.KindAuth error.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.TokenManager == nil {
		return nil, apierr.Auth("httpclient.RoundTrip", errors.New("httpclient: TokenManager is nil"))
	}

	token, err := t.TokenManager.AccessToken(req.Context())
	if err != nil {
		return nil, err
	}

	// Clone the request to avoid modifying the original
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(reqClone)
}

// NewBearerTransport creates a BearerTransport for tm.
// The base transport defaults to http.DefaultTransport if not specified.
func NewBearerTransport(tm *gcpauth.TokenManager, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &BearerTransport{
		Base:         base,
		TokenManager: tm,
	}
}

// headerTransport sets fixed headers on every request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, vals := range t.headers {
		req.Header.Del(k)
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	return t.base.RoundTrip(req)
}
