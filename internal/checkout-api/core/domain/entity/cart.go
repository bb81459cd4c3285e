package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLineItem = errors.New("invalid line item")
	ErrMixedCurrency   = errors.New("cart items must share one currency")
)

// MaxQuantity caps a single line so totals stay within what the order
// service accepts.
const MaxQuantity = 999

type CartLineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartLineItem) validate() error {
	switch {
	case strings.TrimSpace(i.ProductID) == "":
		return errors.Join(ErrInvalidLineItem, errors.New("product_id is required"))
	case i.UnitPrice.IsNegative():
		return errors.Join(ErrInvalidLineItem, errors.New("unit_price must not be negative"))
	case !i.UnitPrice.Equal(i.UnitPrice.Round(2)):
		return errors.Join(ErrInvalidLineItem, errors.New("unit_price must not have fractions of a cent"))
	}
	return ValidateQuantity(i.Quantity)
}

// ValidateQuantity checks a line quantity against 1..MaxQuantity.
func ValidateQuantity(quantity int) error {
	switch {
	case quantity < 1:
		return errors.Join(ErrInvalidLineItem, errors.New("quantity must be at least 1"))
	case quantity > MaxQuantity:
		return errors.Join(ErrInvalidLineItem, fmt.Errorf("quantity must be at most %d", MaxQuantity))
	}
	return nil
}

// Cart is owned by the cart store; checkout only reads it and asks for it
// to be cleared.
type Cart struct {
	SessionID string         `json:"session_id"`
	Items     []CartLineItem `json:"items"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Currency returns the currency shared by the items, or fallback for an empty cart.
func (c *Cart) Currency(fallback string) string {
	if c.IsEmpty() || c.Items[0].Currency == "" {
		return fallback
	}
	return c.Items[0].Currency
}

// Add merges item into the cart, summing quantities for a product already present.
func (c *Cart) Add(item CartLineItem) error {
	if err := item.validate(); err != nil {
		return err
	}
	if len(c.Items) > 0 && item.Currency != "" && c.Items[0].Currency != "" &&
		!strings.EqualFold(item.Currency, c.Items[0].Currency) {
		return ErrMixedCurrency
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			merged := c.Items[i].Quantity + item.Quantity
			if err := ValidateQuantity(merged); err != nil {
				return err
			}
			c.Items[i].Quantity = merged
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity replaces the quantity of a product; zero removes it.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return true
	}
	return false
}

func (c *Cart) Remove(productID string) bool {
	return c.SetQuantity(productID, 0)
}

// Snapshot returns a copy of the line items that later cart mutations cannot reach.
func (c *Cart) Snapshot() []CartLineItem {
	if c == nil {
		return nil
	}
	out := make([]CartLineItem, len(c.Items))
	copy(out, c.Items)
	return out
}
