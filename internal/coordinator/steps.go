package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
)

// Step is one network call of the checkout. Steps run one at a time per
// session; a step that fails leaves the checkout in a retryable state.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
}

// --- CreateOrderStep ---

type CreateOrderStep struct {
	backend        ports.OrderBackend
	idempotencyKey string
	request        entity.CreateOrderRequest
	order          *entity.Order
}

func NewCreateOrderStep(backend ports.OrderBackend, idempotencyKey string, request entity.CreateOrderRequest) *CreateOrderStep {
	return &CreateOrderStep{
		backend:        backend,
		idempotencyKey: idempotencyKey,
		request:        request,
	}
}

func (s *CreateOrderStep) Name() string { return "create_order" }

func (s *CreateOrderStep) Execute(ctx context.Context) error {
	order, err := s.backend.CreateOrder(ctx, s.idempotencyKey, s.request)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	if order.ID == "" || order.OrderNumber == "" {
		return fmt.Errorf("failed to create order: backend returned no identity")
	}
	s.order = order
	return nil
}

// --- CaptureStep ---

type CaptureStep struct {
	settlement *Settlement
	order      *entity.Order
	capture    *entity.Capture
}

func NewCaptureStep(settlement *Settlement, order *entity.Order) *CaptureStep {
	return &CaptureStep{settlement: settlement, order: order}
}

func (s *CaptureStep) Name() string { return "capture" }

func (s *CaptureStep) Execute(ctx context.Context) error {
	capture, err := s.settlement.Capture(ctx, s.order)
	if err != nil {
		return err
	}
	s.capture = capture
	return nil
}

// --- ReconcileStep ---

type ReconcileStep struct {
	settlement        *Settlement
	orderID           string
	providerReference string
	order             *entity.Order
}

func NewReconcileStep(settlement *Settlement, orderID, providerReference string) *ReconcileStep {
	return &ReconcileStep{
		settlement:        settlement,
		orderID:           orderID,
		providerReference: providerReference,
	}
}

func (s *ReconcileStep) Name() string { return "reconcile" }

func (s *ReconcileStep) Execute(ctx context.Context) error {
	order, err := s.settlement.Reconcile(ctx, s.orderID, s.providerReference)
	if err != nil {
		return err
	}
	s.order = order
	return nil
}
