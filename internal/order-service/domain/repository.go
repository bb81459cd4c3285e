package domain

import (
	"context"
	"time"
)

// Repository persists orders. Create returns ErrDuplicateIdempotencyKey when
// a non-empty idempotency key is already taken.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]*Order, error)
}
