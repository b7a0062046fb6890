// Package httpclient builds *http.Client values that authenticate against
// Google REST APIs with a gcpauth.TokenManager.
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder().
//	    WithTokenManager(tm).
//	    WithHeader("User-Agent", "my-tool/1.0").
//	    WithTimeout(60 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewBearerTransport(tm, nil)
//	client := &http.Client{Transport: transport}
//
// TLS 1.2 is the minimum version unless a base transport is supplied.
package httpclient
