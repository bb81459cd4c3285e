package cartstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

func addOne(id string) func(*entity.Cart) error {
	return func(c *entity.Cart) error {
		return c.Add(entity.CartLineItem{
			ProductID: id,
			UnitPrice: decimal.NewFromInt(5),
			Currency:  "USD",
			Quantity:  1,
		})
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "s1", cart.SessionID)

	cart, err = store.Mutate(ctx, "s1", addOne("felucca"))
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())

	// callers get copies
	cart.Items[0].Quantity = 99
	stored, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)

	require.NoError(t, store.Clear(ctx, "s1"))
	require.NoError(t, store.Clear(ctx, "s1"))
	stored, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
}

func TestMemoryStoreMutateErrorLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Mutate(ctx, "s1", addOne("a"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Mutate(ctx, "s1", func(c *entity.Cart) error {
		c.Items = nil
		return boom
	})
	require.ErrorIs(t, err, boom)

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestMemoryStoreConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Mutate(ctx, "s1", addOne("same"))
		}()
	}
	wg.Wait()

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, cart.ItemCount())
}

func TestDecodeCart(t *testing.T) {
	cart, err := decodeCart("s1", []byte(`{"items":[{"product_id":"a","unit_price":"12.5","currency":"USD","quantity":2}]}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", cart.SessionID)
	assert.Equal(t, "25", cart.Subtotal().String())

	_, err = decodeCart("s1", []byte(`{`), nil)
	assert.Error(t, err)
}
