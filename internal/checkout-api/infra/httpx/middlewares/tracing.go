package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
)

const tracerName = "github.com/jcmexdev/storefront-checkout/checkout-api/http"

// AttachTracingMetadata opens the server span for the request and stores the
// chi request id where the gRPC client interceptor picks it up.
func AttachTracingMetadata(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("request.id", requestID)),
		)
		defer span.End()

		ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
		if requestID != "" {
			w.Header().Set(middleware.RequestIDHeader, requestID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
