// Package pricing derives shipping, tax and the order total from a cart
// subtotal. It performs no I/O.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

// ShippingPolicy prices delivery for a subtotal.
type ShippingPolicy interface {
	ShippingCost(subtotal decimal.Decimal) decimal.Decimal
}

// TaxPolicy prices tax for a subtotal.
type TaxPolicy interface {
	Tax(subtotal decimal.Decimal) decimal.Decimal
}

// FlatShipping is free strictly above Threshold and Fee otherwise.
type FlatShipping struct {
	Threshold decimal.Decimal
	Fee       decimal.Decimal
}

func (p FlatShipping) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.Threshold) {
		return decimal.Zero
	}
	return p.Fee
}

// FlatTax applies Rate to the subtotal, rounded to cents.
type FlatTax struct {
	Rate decimal.Decimal
}

func (p FlatTax) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.Rate).Round(2)
}

type Engine struct {
	shipping ShippingPolicy
	tax      TaxPolicy
}

func NewEngine(shipping ShippingPolicy, tax TaxPolicy) *Engine {
	return &Engine{shipping: shipping, tax: tax}
}

// ComputeTotals is deterministic; total is always subtotal + shipping + tax.
func (e *Engine) ComputeTotals(subtotal decimal.Decimal, currency string) entity.Totals {
	shipping := e.shipping.ShippingCost(subtotal)
	tax := e.tax.Tax(subtotal)
	return entity.Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
		Currency:     currency,
	}
}
