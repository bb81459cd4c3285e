package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentOnline         PaymentMethod = "online"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentOnline || m == PaymentCashOnDelivery
}

// SubmitLabel is the caption of the checkout submit control for the method.
func (m PaymentMethod) SubmitLabel() string {
	if m == PaymentCashOnDelivery {
		return "Place order"
	}
	return "Continue to payment"
}

type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "UNPAID"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPendingCollection PaymentStatus = "PENDING_COLLECTION"
)

// Totals are computed once by the pricing engine and frozen into the order.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

// Balanced reports whether total == subtotal + shipping + tax.
func (t Totals) Balanced() bool {
	return t.Total.Equal(t.Subtotal.Add(t.ShippingCost).Add(t.Tax))
}

type Order struct {
	ID                string
	OrderNumber       string
	Items             []CartLineItem
	CustomerName      string
	Email             string
	Phone             string
	ShippingAddress   Address
	BillingAddress    Address
	Totals            Totals
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	Status            OrderStatus
	ProviderReference string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateOrderRequest is everything the backend needs to persist an order.
type CreateOrderRequest struct {
	Items           []CartLineItem
	CustomerName    string
	Email           string
	Phone           string
	ShippingAddress Address
	BillingAddress  Address
	Totals          Totals
	PaymentMethod   PaymentMethod
}

type PaymentUpdate struct {
	ProviderReference string
	Status            PaymentStatus
}
