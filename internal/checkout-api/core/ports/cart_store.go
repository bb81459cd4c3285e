package ports

import (
	"context"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

// CartStore is the external cart collaborator, keyed by checkout session.
// Get returns an empty cart, not an error, for an unknown session.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*entity.Cart, error)
	// Mutate applies fn atomically to the stored cart and returns the result.
	Mutate(ctx context.Context, sessionID string, fn func(*entity.Cart) error) (*entity.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}
