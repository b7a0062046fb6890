// Package kms is a Cloud KMS client over gRPC.
//
// Every call carries the bearer token of the client's gcpauth.TokenManager and
// an x-goog-request-params header naming the parent or key. Responses are the
// generated kmspb messages, returned unchanged.
package kms
