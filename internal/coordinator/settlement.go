package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
)

// Settlement moves an online order from unpaid to paid. Capture and
// Reconcile are two separate calls against two systems; a failure between
// them leaves a capture the backend does not know about yet.
type Settlement struct {
	payments ports.PaymentProvider
	orders   ports.OrderBackend
}

func NewSettlement(payments ports.PaymentProvider, orders ports.OrderBackend) *Settlement {
	return &Settlement{payments: payments, orders: orders}
}

// Capture charges the frozen order total. The order number is the provider
// invoice id, so a repeated capture for the same order is deduplicated by
// the provider and can be looked up later.
func (s *Settlement) Capture(ctx context.Context, order *entity.Order) (*entity.Capture, error) {
	capture, err := s.payments.Capture(ctx, entity.CaptureRequest{
		Amount:      order.Totals.Total,
		Currency:    order.Totals.Currency,
		Description: "Order " + order.OrderNumber,
		InvoiceID:   order.OrderNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("capture order %s: %w", order.OrderNumber, err)
	}
	if capture.Status != entity.CaptureCompleted {
		return nil, fmt.Errorf("capture order %s: %w: status %s", order.OrderNumber, entity.ErrCaptureDeclined, capture.Status)
	}
	return capture, nil
}

// Reconcile records the capture on the backend order.
func (s *Settlement) Reconcile(ctx context.Context, orderID, providerReference string) (*entity.Order, error) {
	order, err := s.orders.UpdatePayment(ctx, orderID, entity.PaymentUpdate{
		ProviderReference: providerReference,
		Status:            entity.PaymentPaid,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile order %s: %w", orderID, err)
	}
	return order, nil
}
