package coordinator

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
)

// Confirmation finishes a checkout: it empties the cart and hands back the
// confirmation route. Calling it twice is harmless.
type Confirmation struct {
	carts ports.CartStore
}

func NewConfirmation(carts ports.CartStore) *Confirmation {
	return &Confirmation{carts: carts}
}

// Complete always returns the confirmation path, even when clearing the
// cart failed; the order is final either way.
func (c *Confirmation) Complete(ctx context.Context, sessionID, orderNumber string) (string, error) {
	path := ConfirmationPath(orderNumber)
	if err := c.carts.Clear(ctx, sessionID); err != nil {
		return path, fmt.Errorf("clear cart for session %s: %w", sessionID, err)
	}
	return path, nil
}

func ConfirmationPath(orderNumber string) string {
	return "/orders/" + url.PathEscape(orderNumber) + "/confirmation"
}
