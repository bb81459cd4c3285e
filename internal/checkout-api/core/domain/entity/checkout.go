package entity

import (
	"time"
)

// CheckoutForm is what the user submits from the checkout page.
type CheckoutForm struct {
	ShippingAddress       Address
	BillingSameAsShipping bool
	BillingAddress        Address
	PaymentMethod         PaymentMethod
}

// Billing resolves the billing address, honouring the same-as-shipping toggle.
func (f CheckoutForm) Billing() Address {
	if f.BillingSameAsShipping {
		return f.ShippingAddress
	}
	return f.BillingAddress
}

// Quote is the item snapshot and totals shown at review time. Once frozen
// it is the only source of the amounts sent to the backend and the provider.
type Quote struct {
	Items    []CartLineItem `json:"items"`
	Totals   Totals         `json:"totals"`
	FrozenAt time.Time      `json:"frozen_at"`
}

// Matches reports whether cart still holds exactly what the quote was built from.
func (q *Quote) Matches(cart *Cart) bool {
	if q == nil || cart == nil || len(q.Items) != len(cart.Items) {
		return false
	}
	for i, it := range q.Items {
		c := cart.Items[i]
		if it.ProductID != c.ProductID || it.Quantity != c.Quantity || !it.UnitPrice.Equal(c.UnitPrice) {
			return false
		}
	}
	return q.Totals.Subtotal.Equal(cart.Subtotal())
}
