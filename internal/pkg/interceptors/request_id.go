package interceptors

import (
	"context"

	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor copies the request id carried in ctx into the
// outgoing gRPC metadata so the downstream service logs the same id.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(ContextWithPropagatedID(ctx), method, req, reply, cc, opts...)
	}
}

// RequestIDFromContext returns the request id stored by the HTTP middleware
// or the server interceptor, falling back to gRPC metadata.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && id != "" {
		return id
	}
	return GetMetadataValue(ctx, constants.HeaderXRequestId)
}

// ContextWithPropagatedID appends the request id to the outgoing metadata
// unless the caller already set one.
func ContextWithPropagatedID(ctx context.Context) context.Context {
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(constants.HeaderXRequestId)) > 0 {
		return ctx
	}
	id := RequestIDFromContext(ctx)
	if id == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, constants.HeaderXRequestId, id)
}

// WithIdempotencyKey attaches key to the outgoing metadata of ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, constants.HeaderXIdempotencyKey, key)
}

func GetMetadataValue(ctx context.Context, key string) string {
	if id, ok := ctx.Value(contextKeyFor(key)).(string); ok {
		return id
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}

func contextKeyFor(header string) any {
	switch header {
	case constants.HeaderXRequestId:
		return constants.ContextKeyRequestID
	case constants.HeaderXIdempotencyKey:
		return constants.ContextKeyIdempotencyKey
	}
	return header
}
