package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TraceServerInterceptor lifts the request id and idempotency key out of the
// incoming metadata into typed context values and logs every call.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, exist := metadata.FromIncomingContext(ctx)
		requestID := ""
		idempotencyID := ""
		if exist {
			if ids := md.Get(constants.HeaderXRequestId); len(ids) > 0 {
				requestID = ids[0]
			}

			if ids := md.Get(constants.HeaderXIdempotencyKey); len(ids) > 0 {
				idempotencyID = ids[0]
			}
		}
		newCtx := context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
		newCtx = context.WithValue(newCtx, constants.ContextKeyIdempotencyKey, idempotencyID)

		start := time.Now()
		resp, err := handler(newCtx, req)

		slog.InfoContext(newCtx, "grpc call",
			"method", info.FullMethod,
			"idempotency_key", idempotencyID,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
