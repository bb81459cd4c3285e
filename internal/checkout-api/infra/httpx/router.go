package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/httpx/middlewares"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
)

func NewRouter(handler *Handler, m *metrics.ServerMetrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Metrics(m))

	r.Get("/health", handler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	r.Get("/orders/{orderNumber}/confirmation", handler.GetConfirmation)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireSession)

		r.Get("/cart", handler.GetCart)
		r.Post("/cart/items", handler.AddItem)
		r.Put("/cart/items/{productID}", handler.UpdateItem)
		r.Delete("/cart/items/{productID}", handler.RemoveItem)

		r.Get("/checkout", handler.GetCheckout)
		r.Post("/checkout/review", handler.Review)
		r.Post("/checkout/submit", handler.Submit)
		r.Post("/checkout/payment", handler.Pay)
	})
	return r
}
