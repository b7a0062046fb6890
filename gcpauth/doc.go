// Package gcpauth resolves Google credentials and caches the bearer tokens
// used by every go-gcpapis service client.
//
// A CredentialSource mints tokens for a list of scopes. GoogleCredentials is
// the production source; it is built from Application Default Credentials or
// from an explicit credential file. A TokenManager owns one cached Token for a
// fixed scope set and only asks its source for a new one when the cache is
// empty or the cached token is about to expire.
//
// # Quick Start
//
//	tm, err := gcpauth.NewDefaultTokenManager(ctx, []string{
//	    "https://www.googleapis.com/auth/cloud-platform",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, err := tm.GetToken(ctx)
//
// Sharing one source between several caches:
//
//	creds, err := gcpauth.NewCredentialsFromFile(ctx, "service-account.json")
//	kmsTokens := gcpauth.NewTokenManager(creds, kms.Scopes)
//	pubsubTokens := gcpauth.NewTokenManager(creds, pubsub.Scopes)
//
// # Notes
//
//   - Tokens are refreshed DefaultExpiryLeeway before expiry; WithExpiryLeeway(0)
//     keeps them until the exact expiry time.
//   - TokenManager is safe for concurrent use and uses double-checked locking.
//   - Minting failures are returned as apierr.KindAuth and never retried.
//   - UnaryClientInterceptor/StreamClientInterceptor attach the token to gRPC
//     calls; TokenSource adapts the cache for google.golang.org/api clients.
package gcpauth
