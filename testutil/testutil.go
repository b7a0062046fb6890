// Package testutil provides helpers for testing code that is built on
// go-gcpapis clients without real Google credentials.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AmmannChristian/go-gcpapis/gcpauth"
)

// FakeCredentialSource is a gcpauth.CredentialSource that mints predictable
// tokens. The n-th mint returns "<Prefix>-<n>" unless Err is set.
type FakeCredentialSource struct {
	// Prefix of the minted access tokens. Defaults to "fake-token".
	Prefix string
	// TTL of minted tokens. Zero mints tokens without expiry.
	TTL time.Duration
	// Err, when non-nil, is returned by every mint.
	Err error

	mu     sync.Mutex
	scopes [][]string
	mints  atomic.Int64
}

// MintToken implements gcpauth.CredentialSource.
func (s *FakeCredentialSource) MintToken(_ context.Context, scopes []string) (*gcpauth.Token, error) {
	s.mu.Lock()
	s.scopes = append(s.scopes, append([]string(nil), scopes...))
	s.mu.Unlock()

	n := s.mints.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}

	prefix := s.Prefix
	if prefix == "" {
		prefix = "fake-token"
	}

	token := &gcpauth.Token{AccessToken: fmt.Sprintf("%s-%d", prefix, n)}
	if s.TTL > 0 {
		token.Expiry = time.Now().Add(s.TTL)
	}
	return token, nil
}

// Mints reports how many times MintToken was called.
func (s *FakeCredentialSource) Mints() int {
	return int(s.mints.Load())
}

// Scopes returns the scope lists passed to each mint, in order.
func (s *FakeCredentialSource) Scopes() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.scopes...)
}

// NewStaticTokenManager returns a TokenManager whose source always mints
// accessToken with no expiry. The token is minted once and then cached.
func NewStaticTokenManager(tb testing.TB, accessToken string, scopes ...string) *gcpauth.TokenManager {
	tb.Helper()

	source := gcpauth.CredentialSourceFunc(func(context.Context, []string) (*gcpauth.Token, error) {
		return &gcpauth.Token{AccessToken: accessToken}, nil
	})
	return gcpauth.NewTokenManager(source, scopes)
}

// NewFakeTokenManager returns a TokenManager backed by a new FakeCredentialSource
// so tests can assert on mint counts.
func NewFakeTokenManager(tb testing.TB, scopes ...string) (*gcpauth.TokenManager, *FakeCredentialSource) {
	tb.Helper()

	source := &FakeCredentialSource{TTL: time.Hour}
	return gcpauth.NewTokenManager(source, scopes), source
}
