package entity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, price string, qty int) CartLineItem {
	return CartLineItem{
		ProductID: id,
		Name:      "Tour " + id,
		UnitPrice: decimal.RequireFromString(price),
		Currency:  "USD",
		Quantity:  qty,
	}
}

func TestCartAddMergesQuantities(t *testing.T) {
	var cart Cart
	require.NoError(t, cart.Add(item("balloon", "20", 1)))
	require.NoError(t, cart.Add(item("karnak", "15.50", 2)))
	require.NoError(t, cart.Add(item("balloon", "20", 2)))

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.ItemCount())
	assert.Equal(t, "91.00", cart.Subtotal().StringFixed(2))
	assert.Equal(t, "USD", cart.Currency("EUR"))
}

func TestCartAddRejectsInvalidItems(t *testing.T) {
	var cart Cart
	assert.ErrorIs(t, cart.Add(item("", "1", 1)), ErrInvalidLineItem)
	assert.ErrorIs(t, cart.Add(item("x", "1", 0)), ErrInvalidLineItem)
	assert.ErrorIs(t, cart.Add(item("x", "-1", 1)), ErrInvalidLineItem)

	require.NoError(t, cart.Add(item("x", "1", 1)))
	eur := item("y", "1", 1)
	eur.Currency = "EUR"
	assert.ErrorIs(t, cart.Add(eur), ErrMixedCurrency)
}

func TestCartAddRejectsSubCentPriceAndHugeQuantity(t *testing.T) {
	var cart Cart
	assert.ErrorIs(t, cart.Add(item("x", "19.995", 1)), ErrInvalidLineItem)
	assert.ErrorIs(t, cart.Add(item("x", "1", MaxQuantity+1)), ErrInvalidLineItem)
	assert.True(t, cart.IsEmpty())

	// trailing zeros are still whole cents
	require.NoError(t, cart.Add(item("x", "19.990", MaxQuantity)))
	err := cart.Add(item("x", "19.99", 1))
	assert.ErrorIs(t, err, ErrInvalidLineItem)
	assert.Equal(t, MaxQuantity, cart.Items[0].Quantity)

	assert.NoError(t, ValidateQuantity(MaxQuantity))
	assert.ErrorIs(t, ValidateQuantity(0), ErrInvalidLineItem)
}

func TestCartRemoveAndSetQuantity(t *testing.T) {
	cart := Cart{Items: []CartLineItem{item("a", "1", 1), item("b", "2", 1)}}

	assert.True(t, cart.SetQuantity("b", 4))
	assert.Equal(t, "9", cart.Subtotal().String())

	assert.True(t, cart.Remove("a"))
	assert.False(t, cart.Remove("a"))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "b", cart.Items[0].ProductID)
}

func TestCartSnapshotIsDetached(t *testing.T) {
	cart := Cart{Items: []CartLineItem{item("a", "10", 1)}}
	snap := cart.Snapshot()

	cart.Items[0].Quantity = 7
	assert.Equal(t, 1, snap[0].Quantity)
}

func TestEmptyCart(t *testing.T) {
	var nilCart *Cart
	assert.True(t, nilCart.IsEmpty())
	assert.True(t, nilCart.Subtotal().IsZero())
	assert.Equal(t, "USD", nilCart.Currency("USD"))
}

func TestQuoteMatches(t *testing.T) {
	cart := &Cart{Items: []CartLineItem{item("a", "10", 2)}}
	q := &Quote{Items: cart.Snapshot(), Totals: Totals{Subtotal: cart.Subtotal()}}
	assert.True(t, q.Matches(cart))

	cart.Items[0].Quantity = 3
	assert.False(t, q.Matches(cart))
}

func TestServiceAreaErrorIsValidationError(t *testing.T) {
	var err error = NewServiceAreaError("Cairo")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ReasonOutOfArea, ve.Reason)
	assert.Equal(t, "city", ve.Field)
	assert.Contains(t, err.Error(), "Cairo")
}

func TestIsRetryable(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, IsRetryable(&BackendUnavailableError{Err: cause}))
	assert.True(t, IsRetryable(&PaymentProviderError{OrderNumber: "ORD-1", Err: cause}))
	assert.True(t, IsRetryable(&ReconciliationGapError{OrderID: "1", Err: cause}))
	assert.False(t, IsRetryable(&ValidationError{Reason: ReasonMissingField, Field: "city"}))
	assert.False(t, IsRetryable(ErrEmptyCart))
}
