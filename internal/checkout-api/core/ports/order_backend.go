package ports

import (
	"context"
	"time"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

// OrderBackend persists orders. CreateOrder is deduplicated on
// idempotencyKey: repeating a key returns the order created first.
type OrderBackend interface {
	CreateOrder(ctx context.Context, idempotencyKey string, req entity.CreateOrderRequest) (*entity.Order, error)
	UpdatePayment(ctx context.Context, orderID string, update entity.PaymentUpdate) (*entity.Order, error)
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*entity.Order, error)
	// ListAwaitingPayment returns online orders still unpaid after olderThan.
	ListAwaitingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.Order, error)
}
