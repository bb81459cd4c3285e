package httpx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator"
)

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
	Quantity  int    `json:"quantity"`
	ImageRef  string `json:"image_ref,omitempty"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type SubmitRequest struct {
	ShippingAddress entity.Address `json:"shipping_address"`
	// BillingSameAsShipping defaults to true when omitted.
	BillingSameAsShipping *bool          `json:"billing_same_as_shipping"`
	BillingAddress        entity.Address `json:"billing_address"`
	PaymentMethod         string         `json:"payment_method"`
}

func (r SubmitRequest) Form() entity.CheckoutForm {
	same := r.BillingSameAsShipping == nil || *r.BillingSameAsShipping
	return entity.CheckoutForm{
		ShippingAddress:       r.ShippingAddress,
		BillingSameAsShipping: same,
		BillingAddress:        r.BillingAddress,
		PaymentMethod:         entity.PaymentMethod(r.PaymentMethod),
	}
}

type CartItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
	ImageRef  string `json:"image_ref,omitempty"`
}

type CartResponse struct {
	SessionID string             `json:"session_id"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Currency  string             `json:"currency"`
}

type QuoteResponse struct {
	Items        []CartItemResponse `json:"items"`
	Subtotal     string             `json:"subtotal"`
	ShippingCost string             `json:"shipping_cost"`
	Tax          string             `json:"tax"`
	Total        string             `json:"total"`
	Currency     string             `json:"currency"`
	FrozenAt     string             `json:"frozen_at"`
}

type OutcomeResponse struct {
	SessionID         string         `json:"session_id"`
	State             string         `json:"state"`
	OrderID           string         `json:"order_id,omitempty"`
	OrderNumber       string         `json:"order_number,omitempty"`
	PaymentMethod     string         `json:"payment_method,omitempty"`
	PaymentStatus     string         `json:"payment_status,omitempty"`
	SubmitLabel       string         `json:"submit_label,omitempty"`
	PaymentRequired   bool           `json:"payment_required"`
	Quote             *QuoteResponse `json:"quote,omitempty"`
	ProviderReference string         `json:"provider_reference,omitempty"`
	ConfirmationURL   string         `json:"confirmation_url,omitempty"`
	LastError         string         `json:"last_error,omitempty"`
}

type OrderResponse struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	Status          string             `json:"status"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentStatus   string             `json:"payment_status"`
	CustomerName    string             `json:"customer_name"`
	Email           string             `json:"email"`
	ShippingAddress entity.Address     `json:"shipping_address"`
	Items           []CartItemResponse `json:"items"`
	Subtotal        string             `json:"subtotal"`
	ShippingCost    string             `json:"shipping_cost"`
	Tax             string             `json:"tax"`
	Total           string             `json:"total"`
	Currency        string             `json:"currency"`
	CreatedAt       string             `json:"created_at"`
}

type ViolationResponse struct {
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error     string              `json:"error"`
	Message   string              `json:"message,omitempty"`
	Retryable bool                `json:"retryable"`
	Reason    string              `json:"reason,omitempty"`
	Field     string              `json:"field,omitempty"`
	Details   []ViolationResponse `json:"details,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mapItems(items []entity.CartLineItem) []CartItemResponse {
	out := make([]CartItemResponse, len(items))
	for i, it := range items {
		out[i] = CartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: money(it.UnitPrice),
			Currency:  it.Currency,
			Quantity:  it.Quantity,
			LineTotal: money(it.LineTotal()),
			ImageRef:  it.ImageRef,
		}
	}
	return out
}

func mapCartToResponse(cart *entity.Cart, currency string) CartResponse {
	return CartResponse{
		SessionID: cart.SessionID,
		Items:     mapItems(cart.Items),
		ItemCount: cart.ItemCount(),
		Subtotal:  money(cart.Subtotal()),
		Currency:  cart.Currency(currency),
	}
}

func mapQuoteToResponse(q *entity.Quote) *QuoteResponse {
	if q == nil {
		return nil
	}
	return &QuoteResponse{
		Items:        mapItems(q.Items),
		Subtotal:     money(q.Totals.Subtotal),
		ShippingCost: money(q.Totals.ShippingCost),
		Tax:          money(q.Totals.Tax),
		Total:        money(q.Totals.Total),
		Currency:     q.Totals.Currency,
		FrozenAt:     q.FrozenAt.UTC().Format(time.RFC3339),
	}
}

func mapOutcomeToResponse(o *coordinator.Outcome) OutcomeResponse {
	return OutcomeResponse{
		SessionID:         o.SessionID,
		State:             string(o.State),
		OrderID:           o.OrderID,
		OrderNumber:       o.OrderNumber,
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		PaymentRequired:   o.PaymentMethod == entity.PaymentOnline && o.State.Payable(),
		Quote:             mapQuoteToResponse(o.Quote),
		ProviderReference: o.ProviderReference,
		ConfirmationURL:   o.ConfirmationURL,
		LastError:         o.LastError,
	}
}

func mapOrderToResponse(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		CustomerName:    o.CustomerName,
		Email:           o.Email,
		ShippingAddress: o.ShippingAddress,
		Items:           mapItems(o.Items),
		Subtotal:        money(o.Totals.Subtotal),
		ShippingCost:    money(o.Totals.ShippingCost),
		Tax:             money(o.Totals.Tax),
		Total:           money(o.Totals.Total),
		Currency:        o.Totals.Currency,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
