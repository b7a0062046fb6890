// Package testutil provides test helpers for go-gcpapis packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// mock Google token endpoints without real sockets, generate service account keys whose
// JWT assertions can be verified, run gRPC fakes over bufconn, and write self-signed
// certificates for TLS tests.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - MockOAuth2Server and StaticJSONResponse: stub token endpoints and capture requests
//   - NewServiceAccount / ServiceAccountTokenHandler: service account keys and a token endpoint verifying their assertions
//   - NewBufconnServer: in-memory gRPC server and matching dial options
//   - RoundTripFunc: inline http.RoundTripper implementations
//   - WriteTestCACert: generate a temporary CA certificate
package testutil
