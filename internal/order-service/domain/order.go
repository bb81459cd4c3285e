package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrOrderImmutable          = errors.New("order is in a terminal state")
	ErrNotOnlinePayment        = errors.New("order is not paid online")
	ErrInvalidOrder            = errors.New("invalid order")
)

type Order struct {
	ID                string
	OrderNumber       string
	Items             []OrderItem
	CustomerName      string
	Email             string
	Phone             string
	ShippingAddress   Address
	BillingAddress    Address
	Subtotal          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Currency          string
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	Status            OrderStatus
	ProviderReference string
	IdempotencyKey    string
	RequestID         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) missing() string {
	for _, f := range []struct{ name, value string }{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "UNPAID"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPendingCollection PaymentStatus = "PENDING_COLLECTION"
)

type PaymentMethod string

const (
	MethodOnline         PaymentMethod = "online"
	MethodCashOnDelivery PaymentMethod = "cash-on-delivery"
)

// Place sets the initial lifecycle state. Cash-on-delivery orders are
// complete on creation and wait for collection; online orders wait for a
// capture to be reconciled.
func (o *Order) Place(now time.Time) {
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.PaymentMethod == MethodCashOnDelivery {
		o.Status = StatusCompleted
		o.PaymentStatus = PaymentPendingCollection
		return
	}
	o.Status = StatusCreated
	o.PaymentStatus = PaymentUnpaid
}

// Validate checks the order is complete and its totals add up.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	items := decimal.Zero
	for _, it := range o.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity < 1 || it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: bad line item %q", ErrInvalidOrder, it.ProductID)
		}
		items = items.Add(it.Subtotal())
	}
	if o.PaymentMethod != MethodOnline && o.PaymentMethod != MethodCashOnDelivery {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, o.PaymentMethod)
	}
	if strings.TrimSpace(o.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidOrder)
	}
	if f := o.ShippingAddress.missing(); f != "" {
		return fmt.Errorf("%w: shipping_address.%s is required", ErrInvalidOrder, f)
	}
	if f := o.BillingAddress.missing(); f != "" {
		return fmt.Errorf("%w: billing_address.%s is required", ErrInvalidOrder, f)
	}
	if strings.TrimSpace(o.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidOrder)
	}
	if !o.Subtotal.Equal(items) {
		return fmt.Errorf("%w: subtotal %s does not match items %s", ErrInvalidOrder, o.Subtotal, items)
	}
	if !o.Total.Equal(o.Subtotal.Add(o.ShippingCost).Add(o.Tax)) {
		return fmt.Errorf("%w: total %s is not subtotal + shipping + tax", ErrInvalidOrder, o.Total)
	}
	return nil
}

// ApplyPayment records a provider capture. It reports whether the order
// changed; replaying the update that completed the order is a no-op.
func (o *Order) ApplyPayment(reference string, status PaymentStatus, now time.Time) (bool, error) {
	if o.PaymentMethod != MethodOnline {
		return false, ErrNotOnlinePayment
	}
	if status != PaymentPaid {
		return false, fmt.Errorf("%w: unsupported payment status %q", ErrInvalidOrder, status)
	}
	if strings.TrimSpace(reference) == "" {
		return false, fmt.Errorf("%w: provider reference is required", ErrInvalidOrder)
	}
	if o.Status.IsTerminal() {
		if o.ProviderReference == reference && o.PaymentStatus == status {
			return false, nil
		}
		return false, ErrOrderImmutable
	}

	o.ProviderReference = reference
	o.PaymentStatus = PaymentPaid
	o.Status = StatusCompleted
	o.UpdatedAt = now
	return true, nil
}

// AwaitingPayment reports whether the reconciler should look at this order.
func (o *Order) AwaitingPayment(createdBefore time.Time) bool {
	return o.PaymentMethod == MethodOnline &&
		o.Status == StatusCreated &&
		o.PaymentStatus == PaymentUnpaid &&
		o.CreatedAt.Before(createdBefore)
}
