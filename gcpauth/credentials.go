package gcpauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Token is a bearer credential and its expiry. Tokens are never mutated once
// issued; a refresh replaces the whole value.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// HasExpired reports whether the token can no longer be presented.
// A nil or empty token counts as expired; a zero Expiry never expires.
func (t *Token) HasExpired() bool {
	return t.expiresWithin(time.Now(), 0)
}

// expiresWithin reports whether the token is expired at now+leeway.
func (t *Token) expiresWithin(now time.Time, leeway time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(t.Expiry)
}

func tokenFromOAuth2(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}
}

// CredentialSource mints fresh tokens for a set of scopes. It holds no token
// itself and may be shared between TokenManagers.
type CredentialSource interface {
	MintToken(ctx context.Context, scopes []string) (*Token, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context, scopes []string) (*Token, error)

// MintToken calls f(ctx, scopes).
func (f CredentialSourceFunc) MintToken(ctx context.Context, scopes []string) (*Token, error) {
	return f(ctx, scopes)
}

// GoogleCredentials is a CredentialSource backed by Google service
// credentials: a service account key, an authorized user file, an external
// account configuration or, when no JSON is available, the metadata server.
type GoogleCredentials struct {
	json      []byte
	projectID string
}

var _ CredentialSource = (*GoogleCredentials)(nil)

// NewDefaultCredentials discovers Application Default Credentials from the
// environment (GOOGLE_APPLICATION_CREDENTIALS, the gcloud well-known file or
// the GCE metadata server).
func NewDefaultCredentials(ctx context.Context) (*GoogleCredentials, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpauth: find default credentials: %w", err)
	}

	return &GoogleCredentials{
		json:      creds.JSON,
		projectID: creds.ProjectID,
	}, nil
}

// NewCredentialsFromFile loads credentials from an explicit JSON key file.
func NewCredentialsFromFile(ctx context.Context, path string) (*GoogleCredentials, error) {
	if path == "" {
		return nil, errors.New("gcpauth: credential file path is required")
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the caller on purpose
	if err != nil {
		return nil, fmt.Errorf("gcpauth: read credential file: %w", err)
	}

	return NewCredentialsFromJSON(ctx, data)
}

// NewCredentialsFromJSON validates and wraps credential JSON.
func NewCredentialsFromJSON(ctx context.Context, data []byte) (*GoogleCredentials, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	creds, err := google.CredentialsFromJSON(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("gcpauth: parse credentials: %w", err)
	}

	return &GoogleCredentials{
		json:      data,
		projectID: creds.ProjectID,
	}, nil
}

// ProjectID returns the project associated with the credentials, if known.
func (c *GoogleCredentials) ProjectID() string {
	return c.projectID
}

// MintToken derives a token source for scopes and fetches a single token.
// The token endpoint is reached with the HTTP client stored in ctx under
// oauth2.HTTPClient, or http.DefaultClient.
func (c *GoogleCredentials) MintToken(ctx context.Context, scopes []string) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		creds *google.Credentials
		err   error
	)
	if len(c.json) > 0 {
		creds, err = google.CredentialsFromJSON(ctx, c.json, scopes...)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, scopes...)
	}
	if err != nil {
		return nil, fmt.Errorf("gcpauth: load credentials: %w", err)
	}

	tok, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("gcpauth: mint token: %w", err)
	}

	return tokenFromOAuth2(tok), nil
}
