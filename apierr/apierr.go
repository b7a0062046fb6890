// Package apierr defines the error type shared by all go-gcpapis clients.
//
// Every failure returned by a client is an *Error carrying a Kind that tells
// the caller which layer failed: token minting (KindAuth), the network or
// channel (KindTransport), the remote gRPC service (KindStatus), response
// decoding (KindConvert) or a REST service answering with an unexpected
// response (KindCloudStorage, KindGoogleDrive). The wrapped cause stays
// reachable through errors.Is, errors.As and status.FromError.
package apierr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an Error by the layer that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindTransport
	KindStatus
	KindConvert
	KindCloudStorage
	KindGoogleDrive
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication error"
	case KindTransport:
		return "transport error"
	case KindStatus:
		return "unexpected status"
	case KindConvert:
		return "conversion error"
	case KindCloudStorage:
		return "cloud storage error"
	case KindGoogleDrive:
		return "google drive error"
	default:
		return "unknown error"
	}
}

// Error is the unified error returned by the service clients.
type Error struct {
	Kind Kind
	// Op names the failed operation, e.g. "storage.Object".
	Op string
	// StatusCode is the HTTP status of a REST response, 0 otherwise.
	StatusCode int
	// Body holds the raw response body for diagnostics, if any was read.
	Body string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": response: " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind when the target carries no cause,
// so errors.Is(err, &apierr.Error{Kind: apierr.KindAuth}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// wrap classifies err unless it already carries a kind.
func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Auth wraps a credential or token minting failure.
func Auth(op string, err error) error {
	return wrap(KindAuth, op, err)
}

// Transport wraps a network or channel failure.
func Transport(op string, err error) error {
	return wrap(KindTransport, op, err)
}

// Status wraps a failure reported by the remote service itself.
func Status(op string, err error) error {
	return wrap(KindStatus, op, err)
}

// Convert wraps a response decoding failure.
func Convert(op string, err error) error {
	return wrap(KindConvert, op, err)
}

// Response builds an error for a REST response that did not match
// expectations. err may be nil.
func Response(kind Kind, op string, statusCode int, body string, err error) error {
	return &Error{Kind: kind, Op: op, StatusCode: statusCode, Body: body, Err: err}
}

// FromRPC classifies an error returned by a gRPC stub. Connection level
// failures become KindTransport, all other statuses KindStatus.
func FromRPC(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.Canceled, codes.DeadlineExceeded:
		return &Error{Kind: KindTransport, Op: op, Err: err}
	default:
		return &Error{Kind: KindStatus, Op: op, Err: err}
	}
}
