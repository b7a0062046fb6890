// Package pubsub is a minimal Pub/Sub client over gRPC: single-message
// Publish, non-blocking Pull and Acknowledge.
//
// Set PUBSUB_EMULATOR_HOST to make NewDefaultClient talk to a local emulator.
package pubsub
