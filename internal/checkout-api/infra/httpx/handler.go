package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/delivery"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/httpx/middlewares"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
)

// Checkout is the order orchestrator as seen by the HTTP layer.
type Checkout interface {
	Review(ctx context.Context, sessionID string) (*entity.Quote, error)
	Submit(ctx context.Context, sessionID string, form entity.CheckoutForm) (*coordinator.Outcome, error)
	Pay(ctx context.Context, sessionID string) (*coordinator.Outcome, error)
	Status(ctx context.Context, sessionID string) (*coordinator.Outcome, error)
}

var errItemNotFound = errors.New("item not in cart")

// Handler serves the cart and checkout pages' API.
type Handler struct {
	checkout  Checkout
	carts     ports.CartStore
	orders    ports.OrderBackend
	validator *delivery.Validator
	currency  string
}

func NewHandler(checkout Checkout, carts ports.CartStore, orders ports.OrderBackend, validator *delivery.Validator, currency string) *Handler {
	return &Handler{
		checkout:  checkout,
		carts:     carts,
		orders:    orders,
		validator: validator,
		currency:  currency,
	}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middlewares.SessionID(r.Context())
	cart, err := h.carts.Get(r.Context(), sessionID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(cart, h.currency))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_item", "unit_price must be a decimal amount")
		return
	}
	item := entity.CartLineItem{
		ProductID: strings.TrimSpace(req.ProductID),
		Name:      req.Name,
		UnitPrice: price,
		Currency:  req.Currency,
		Quantity:  req.Quantity,
		ImageRef:  req.ImageRef,
	}
	if item.Currency == "" {
		item.Currency = h.currency
	}

	sessionID := middlewares.SessionID(r.Context())
	cart, err := h.carts.Mutate(r.Context(), sessionID, func(c *entity.Cart) error {
		return c.Add(item)
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(cart, h.currency))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	productID := chi.URLParam(r, "productID")
	if req.Quantity > 0 {
		if err := entity.ValidateQuantity(req.Quantity); err != nil {
			h.writeCheckoutError(w, r, err)
			return
		}
	}

	sessionID := middlewares.SessionID(r.Context())
	cart, err := h.carts.Mutate(r.Context(), sessionID, func(c *entity.Cart) error {
		if !c.SetQuantity(productID, req.Quantity) {
			return errItemNotFound
		}
		return nil
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(cart, h.currency))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	sessionID := middlewares.SessionID(r.Context())
	cart, err := h.carts.Mutate(r.Context(), sessionID, func(c *entity.Cart) error {
		if !c.Remove(productID) {
			return errItemNotFound
		}
		return nil
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(cart, h.currency))
}

// Review freezes the quote the user is about to confirm. Submit creates the
// order from that quote and refuses it once the cart has changed.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	sessionID := middlewares.SessionID(r.Context())
	quote, err := h.checkout.Review(r.Context(), sessionID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapQuoteToResponse(quote))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	form := req.Form()

	sessionID := middlewares.SessionID(r.Context())
	requestID, _ := r.Context().Value(constants.ContextKeyRequestID).(string)
	slog.InfoContext(r.Context(), "submitting checkout",
		"request_id", requestID,
		"session_id", sessionID,
		"payment_method", form.PaymentMethod,
	)

	outcome, err := h.checkout.Submit(r.Context(), sessionID, form)
	if err != nil {
		var ve *entity.ValidationError
		if errors.As(err, &ve) {
			h.writeValidationError(w, ve, err, form)
			return
		}
		h.writeCheckoutError(w, r, err)
		return
	}

	resp := mapOutcomeToResponse(outcome)
	resp.SubmitLabel = form.PaymentMethod.SubmitLabel()
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	sessionID := middlewares.SessionID(r.Context())
	outcome, err := h.checkout.Pay(r.Context(), sessionID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOutcomeToResponse(outcome))
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := middlewares.SessionID(r.Context())
	outcome, err := h.checkout.Status(r.Context(), sessionID)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOutcomeToResponse(outcome))
}

// GetConfirmation backs the confirmation page, keyed by the public order number.
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	order, err := h.orders.GetOrderByNumber(r.Context(), orderNumber)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// writeValidationError lists every shipping-address problem alongside the
// first failure so the form can highlight all of them at once.
func (h *Handler) writeValidationError(w http.ResponseWriter, ve *entity.ValidationError, err error, form entity.CheckoutForm) {
	resp := ErrorResponse{
		Error:   "validation_failed",
		Message: err.Error(),
		Reason:  ve.Reason,
		Field:   ve.Field,
	}
	if strings.HasPrefix(ve.Field, "shipping_address.") {
		for _, v := range h.validator.Violations(form.ShippingAddress.Trimmed()) {
			resp.Details = append(resp.Details, ViolationResponse{
				Reason: v.Reason,
				Field:  "shipping_address." + v.Field,
			})
		}
	}
	if len(resp.Details) == 0 {
		resp.Details = []ViolationResponse{{Reason: ve.Reason, Field: ve.Field}}
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve       *entity.ValidationError
		backend  *entity.BackendUnavailableError
		provider *entity.PaymentProviderError
		gap      *entity.ReconciliationGapError
	)
	retryable := entity.IsRetryable(err)

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
			Reason:  ve.Reason,
			Field:   ve.Field,
		})
	case errors.Is(err, entity.ErrInvalidLineItem), errors.Is(err, entity.ErrMixedCurrency):
		writeError(w, http.StatusBadRequest, "invalid_item", err.Error())
	case errors.Is(err, errItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, entity.ErrEmptyCart):
		writeError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, entity.ErrQuoteStale):
		writeError(w, http.StatusConflict, "quote_stale", err.Error())
	case errors.Is(err, entity.ErrOrderRejected):
		writeError(w, http.StatusUnprocessableEntity, "order_rejected", err.Error())
	case errors.Is(err, entity.ErrNoOrder), errors.Is(err, entity.ErrNotPayable):
		writeError(w, http.StatusConflict, "not_payable", err.Error())
	case errors.Is(err, entity.ErrCartStoreConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "cart_conflict", Message: err.Error(), Retryable: true})
	case errors.Is(err, entity.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, entity.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.As(err, &backend):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "backend_unavailable", Message: err.Error(), Retryable: retryable})
	case errors.As(err, &provider):
		writeJSON(w, http.StatusPaymentRequired, ErrorResponse{Error: "payment_failed", Message: err.Error(), Retryable: retryable})
	case errors.As(err, &gap):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "reconciliation_pending", Message: err.Error(), Retryable: retryable})
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
