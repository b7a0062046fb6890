package gcpauth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/AmmannChristian/go-gcpapis/apierr"
)

// DefaultExpiryLeeway is how long before expiry a cached token is refreshed.
const DefaultExpiryLeeway = time.Minute

// Logger is an interface for optional logging in TokenManager.
// *log.Logger and zerolog.Logger both satisfy it.
type Logger interface {
	Printf(format string, args ...any)
}

// cacheState is the observable state of a TokenManager.
type cacheState int

const (
	stateEmpty cacheState = iota
	stateCached
)

// TokenManager caches one bearer token for a fixed scope set and mints a new
// one through its CredentialSource when the cache is empty or expired.
// It is safe for concurrent access.
type TokenManager struct {
	source       CredentialSource
	scopes       []string
	token        *Token
	mu           sync.RWMutex
	expiryLeeway time.Duration
	logger       Logger // optional logger
	now          func() time.Time
}

// Option is a functional option for configuring TokenManager.
type Option func(*TokenManager)

// WithLogger sets a custom logger for token refresh events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(tm *TokenManager) {
		tm.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
func WithLoggingEnabled() Option {
	return func(tm *TokenManager) {
		tm.logger = log.Default()
	}
}

// WithExpiryLeeway refreshes tokens this long before they expire.
// A zero leeway keeps a token until its exact expiry.
func WithExpiryLeeway(d time.Duration) Option {
	return func(tm *TokenManager) {
		if d >= 0 {
			tm.expiryLeeway = d
		}
	}
}

// NewTokenManager creates a token cache for scopes backed by source.
// The scope slice is copied.
func NewTokenManager(source CredentialSource, scopes []string, opts ...Option) *TokenManager {
	tm := &TokenManager{
		source:       source,
		scopes:       append([]string(nil), scopes...),
		expiryLeeway: DefaultExpiryLeeway,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(tm)
	}

	return tm
}

// NewDefaultTokenManager creates a token cache using Application Default
// Credentials discovered from the environment.
func NewDefaultTokenManager(ctx context.Context, scopes []string, opts ...Option) (*TokenManager, error) {
	creds, err := NewDefaultCredentials(ctx)
	if err != nil {
		return nil, apierr.Auth("gcpauth.NewDefaultTokenManager", err)
	}
	return NewTokenManager(creds, scopes, opts...), nil
}

// NewTokenManagerFromFile creates a token cache using the credential file at path.
func NewTokenManagerFromFile(ctx context.Context, path string, scopes []string, opts ...Option) (*TokenManager, error) {
	creds, err := NewCredentialsFromFile(ctx, path)
	if err != nil {
		return nil, apierr.Auth("gcpauth.NewTokenManagerFromFile", err)
	}
	return NewTokenManager(creds, scopes, opts...), nil
}

// Scopes returns a copy of the configured scopes.
func (tm *TokenManager) Scopes() []string {
	return append([]string(nil), tm.scopes...)
}

// GetToken returns a valid token, minting a new one if the cache is empty or
// the cached token is inside the expiry leeway. Concurrent callers that find
// the cache stale share a single mint.
//
// Errors from the credential source are returned as apierr.KindAuth; nothing
// is retried.
func (tm *TokenManager) GetToken(ctx context.Context) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Fast path: check if we have a valid token without write lock
	tm.mu.RLock()
	if tm.tokenValid() {
		token := tm.token
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Another goroutine might have refreshed while we waited.
	if tm.tokenValid() {
		return tm.token, nil
	}

	if tm.source == nil {
		return nil, apierr.Auth("gcpauth.GetToken", errors.New("gcpauth: credential source is nil"))
	}

	token, err := tm.source.MintToken(ctx, tm.Scopes())
	if err != nil {
		return nil, apierr.Auth("gcpauth.GetToken", err)
	}
	if token.expiresWithin(tm.now(), 0) {
		return nil, apierr.Auth("gcpauth.GetToken", errors.New("gcpauth: credential source returned an expired token"))
	}

	tm.token = token

	if tm.logger != nil {
		if token.Expiry.IsZero() {
			tm.logger.Printf("gcpauth: obtained new access token (no expiry)")
		} else {
			tm.logger.Printf("gcpauth: obtained new access token (expires: %s)", token.Expiry.Format(time.RFC3339))
		}
	}

	return token, nil
}

// AccessToken returns the bearer string of a valid token.
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	token, err := tm.GetToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// tokenValid reports whether the cached token is still usable with the leeway.
func (tm *TokenManager) tokenValid() bool {
	return !tm.token.expiresWithin(tm.now(), tm.expiryLeeway)
}

func (tm *TokenManager) state() cacheState {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if tm.token == nil {
		return stateEmpty
	}
	return stateCached
}

// TokenSource exposes the cache as an oauth2.TokenSource so SDK clients
// configured with option.WithTokenSource share it. ctx is used for mints.
func (tm *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, tm: tm}
}

type tokenSource struct {
	ctx context.Context
	tm  *TokenManager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.tm.GetToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		Expiry:      token.Expiry,
	}, nil
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds
// "authorization: Bearer <token>" to the outgoing metadata. If the token
// cannot be obtained the RPC is not sent.
func (tm *TokenManager) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := tm.AccessToken(ctx)
		if err != nil {
			return err
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming counterpart of UnaryClientInterceptor.
func (tm *TokenManager) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		token, err := tm.AccessToken(ctx)
		if err != nil {
			return nil, err
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return streamer(ctx, desc, cc, method, opts...)
	}
}
