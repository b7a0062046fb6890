package grpcclient

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// RequestParamsHeader is the metadata key Google front ends use to route a
// call to the backend owning the named resource.
const RequestParamsHeader = "x-goog-request-params"

// RequestParam is one routing key/value pair, e.g. {"parent", "projects/p/locations/l"}.
type RequestParam struct {
	Key   string
	Value string
}

// Param is shorthand for building a RequestParam.
func Param(key, value string) RequestParam {
	return RequestParam{Key: key, Value: value}
}

// FormatRequestParams joins params as "k1=v1&k2=v2" in the given order.
// Values are sent as-is; resource names keep their slashes.
func FormatRequestParams(params ...RequestParam) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.Key)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
	return sb.String()
}

// WithRequestParams returns a context whose outgoing metadata carries the
// x-goog-request-params header for params. With no params ctx is returned unchanged.
func WithRequestParams(ctx context.Context, params ...RequestParam) context.Context {
	if len(params) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, RequestParamsHeader, FormatRequestParams(params...))
}
