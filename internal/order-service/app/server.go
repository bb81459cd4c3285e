package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/order-service/adapters/grpc/mappers"
	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
	orderv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/orderv1"
)

type orderServer struct {
	orderv1.UnimplementedOrderServer
	repo   domain.Repository
	events domain.EventPublisher
	now    func() time.Time
	newID  func() string
	number func() string
}

// Option customises the server, mostly for tests.
type Option func(*orderServer)

func WithClock(now func() time.Time) Option {
	return func(s *orderServer) { s.now = now }
}

func NewOrderServer(repo domain.Repository, events domain.EventPublisher, opts ...Option) *orderServer {
	s := &orderServer{
		repo:   repo,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		number: func() string { return "ORD-" + ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderServer) CreateOrder(ctx context.Context, req *orderv1.CreateOrderRequest) (*orderv1.CreateOrderResponse, error) {
	order, err := mappers.OrderFromProto(ctx, req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if existing, err := s.repo.GetByIdempotencyKey(ctx, order.IdempotencyKey); err == nil {
		slog.InfoContext(ctx, "order replayed", "order_id", existing.ID, "idempotency_key", order.IdempotencyKey)
		return &orderv1.CreateOrderResponse{Order: mappers.OrderToProto(existing), Replayed: true}, nil
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, status.Errorf(codes.Unavailable, "lookup idempotency key: %v", err)
	}

	if err := order.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order.ID = s.newID()
	order.OrderNumber = s.number()
	order.Place(s.now())

	if err := s.repo.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent request carrying the same key.
			existing, getErr := s.repo.GetByIdempotencyKey(ctx, order.IdempotencyKey)
			if getErr == nil {
				return &orderv1.CreateOrderResponse{Order: mappers.OrderToProto(existing), Replayed: true}, nil
			}
		}
		return nil, status.Errorf(codes.Unavailable, "create order: %v", err)
	}

	slog.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"payment_method", order.PaymentMethod,
		"total", order.Total.StringFixed(2),
	)

	events := []domain.Event{domain.NewEvent(domain.EventOrderCreated, order, order.CreatedAt)}
	if order.Status == domain.StatusCompleted {
		events = append(events, domain.NewEvent(domain.EventOrderCompleted, order, order.CreatedAt))
	}
	s.publish(ctx, events...)

	return &orderv1.CreateOrderResponse{Order: mappers.OrderToProto(order)}, nil
}

func (s *orderServer) UpdatePayment(ctx context.Context, req *orderv1.UpdatePaymentRequest) (*orderv1.UpdatePaymentResponse, error) {
	order, err := s.repo.GetByID(ctx, req.OrderId)
	if err != nil {
		return nil, toStatus(err, "order %s", req.OrderId)
	}

	changed, err := order.ApplyPayment(req.ProviderReference, domain.PaymentStatus(req.PaymentStatus), s.now())
	if err != nil {
		return nil, toStatus(err, "update payment of order %s", order.ID)
	}

	if changed {
		if err := s.repo.Update(ctx, order); err != nil {
			return nil, toStatus(err, "update payment of order %s", order.ID)
		}
		slog.InfoContext(ctx, "order paid",
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"provider_reference", order.ProviderReference,
		)
		s.publish(ctx,
			domain.NewEvent(domain.EventPaymentUpdated, order, order.UpdatedAt),
			domain.NewEvent(domain.EventOrderCompleted, order, order.UpdatedAt),
		)
	}

	return &orderv1.UpdatePaymentResponse{Order: mappers.OrderToProto(order)}, nil
}

func (s *orderServer) GetOrder(ctx context.Context, req *orderv1.GetOrderRequest) (*orderv1.GetOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, req.Id)
	if err != nil {
		return nil, toStatus(err, "order %s", req.Id)
	}
	return &orderv1.GetOrderResponse{Order: mappers.OrderToProto(order)}, nil
}

func (s *orderServer) GetOrderByNumber(ctx context.Context, req *orderv1.GetOrderByNumberRequest) (*orderv1.GetOrderResponse, error) {
	order, err := s.repo.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, toStatus(err, "order %s", req.OrderNumber)
	}
	return &orderv1.GetOrderResponse{Order: mappers.OrderToProto(order)}, nil
}

func (s *orderServer) ListAwaitingPayment(ctx context.Context, req *orderv1.ListAwaitingPaymentRequest) (*orderv1.ListAwaitingPaymentResponse, error) {
	if req.OlderThanSeconds < 0 {
		return nil, status.Error(codes.InvalidArgument, "older_than_seconds must not be negative")
	}
	cutoff := s.now().Add(-time.Duration(req.OlderThanSeconds) * time.Second)

	orders, err := s.repo.ListAwaitingPayment(ctx, cutoff, int(req.Limit))
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "list awaiting payment: %v", err)
	}
	return &orderv1.ListAwaitingPaymentResponse{Orders: mappers.OrdersToProto(orders)}, nil
}

func (s *orderServer) publish(ctx context.Context, events ...domain.Event) {
	if err := s.events.Publish(ctx, events...); err != nil {
		slog.WarnContext(ctx, "order event not published", "error", err)
	}
}

func toStatus(err error, format string, args ...any) error {
	code := codes.Unavailable
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrOrderImmutable), errors.Is(err, domain.ErrNotOnlinePayment):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrInvalidOrder):
		code = codes.InvalidArgument
	}
	return status.Errorf(code, "%s: %v", fmt.Sprintf(format, args...), err)
}
