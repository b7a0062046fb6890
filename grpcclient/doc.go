// Package grpcclient provides a fluent builder for gRPC connections to Google
// APIs and helpers for the x-goog-request-params routing header.
//
// Connections default to TLS 1.2+ using system roots. WithTokenManager installs
// interceptors that attach the cached access token to every call. WithInsecure
// is intended for emulators such as the Pub/Sub emulator.
//
// # Quick Start
//
//	conn, err := grpcclient.NewBuilder().
//	    WithAddress("cloudkms.googleapis.com:443").
//	    WithTokenManager(tm).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("parent", parent))
//	resp, err := kmspb.NewKeyManagementServiceClient(conn).ListKeyRings(ctx, req)
package grpcclient
