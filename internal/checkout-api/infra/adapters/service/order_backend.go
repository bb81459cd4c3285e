package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors"
	orderv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/orderv1"
)

// GRPCOrderBackend talks to the order service over gRPC.
type GRPCOrderBackend struct {
	client orderv1.OrderClient
}

func NewGRPCOrderBackend(client orderv1.OrderClient) ports.OrderBackend {
	return &GRPCOrderBackend{client: client}
}

var _ ports.OrderBackend = (*GRPCOrderBackend)(nil)

func (s *GRPCOrderBackend) CreateOrder(ctx context.Context, idempotencyKey string, req entity.CreateOrderRequest) (*entity.Order, error) {
	ctx = interceptors.WithIdempotencyKey(ctx, idempotencyKey)

	res, err := s.client.CreateOrder(ctx, &orderv1.CreateOrderRequest{
		Items:           mapItemsToProto(req.Items),
		CustomerName:    req.CustomerName,
		Email:           req.Email,
		Phone:           req.Phone,
		ShippingAddress: mapAddressToProto(req.ShippingAddress),
		BillingAddress:  mapAddressToProto(req.BillingAddress),
		Subtotal:        req.Totals.Subtotal.StringFixed(2),
		ShippingCost:    req.Totals.ShippingCost.StringFixed(2),
		Tax:             req.Totals.Tax.StringFixed(2),
		Total:           req.Totals.Total.StringFixed(2),
		Currency:        req.Totals.Currency,
		PaymentMethod:   orderv1.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return nil, fmt.Errorf("grpc CreateOrder: %w", mapStatus(err))
	}
	return orderFromResponse("CreateOrder", res.GetOrder())
}

func (s *GRPCOrderBackend) UpdatePayment(ctx context.Context, orderID string, update entity.PaymentUpdate) (*entity.Order, error) {
	res, err := s.client.UpdatePayment(ctx, &orderv1.UpdatePaymentRequest{
		OrderId:           orderID,
		ProviderReference: update.ProviderReference,
		PaymentStatus:     orderv1.PaymentStatus(update.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("grpc UpdatePayment: %w", mapStatus(err))
	}
	return orderFromResponse("UpdatePayment", res.GetOrder())
}

func (s *GRPCOrderBackend) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	res, err := s.client.GetOrder(ctx, &orderv1.GetOrderRequest{Id: id})
	if err != nil {
		return nil, fmt.Errorf("grpc GetOrder: %w", mapStatus(err))
	}
	return orderFromResponse("GetOrder", res.GetOrder())
}

func (s *GRPCOrderBackend) GetOrderByNumber(ctx context.Context, orderNumber string) (*entity.Order, error) {
	res, err := s.client.GetOrderByNumber(ctx, &orderv1.GetOrderByNumberRequest{OrderNumber: orderNumber})
	if err != nil {
		return nil, fmt.Errorf("grpc GetOrderByNumber: %w", mapStatus(err))
	}
	return orderFromResponse("GetOrderByNumber", res.GetOrder())
}

func (s *GRPCOrderBackend) ListAwaitingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.Order, error) {
	res, err := s.client.ListAwaitingPayment(ctx, &orderv1.ListAwaitingPaymentRequest{
		OlderThanSeconds: int64(olderThan / time.Second),
		Limit:            int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("grpc ListAwaitingPayment: %w", mapStatus(err))
	}

	out := make([]*entity.Order, 0, len(res.GetOrders()))
	for _, po := range res.GetOrders() {
		o, err := mapProtoOrderToEntity(po)
		if err != nil {
			return nil, fmt.Errorf("grpc ListAwaitingPayment: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// mapStatus turns the backend's status codes into the sentinels the
// coordinator branches on; anything else is passed through.
func mapStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", entity.ErrOrderNotFound, status.Convert(err).Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", entity.ErrOrderImmutable, status.Convert(err).Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", entity.ErrOrderRejected, status.Convert(err).Message())
	}
	return err
}

func orderFromResponse(method string, po *orderv1.OrderInfo) (*entity.Order, error) {
	if po == nil {
		return nil, fmt.Errorf("grpc %s: empty order in response", method)
	}
	o, err := mapProtoOrderToEntity(po)
	if err != nil {
		return nil, fmt.Errorf("grpc %s: %w", method, err)
	}
	return o, nil
}

func mapProtoOrderToEntity(po *orderv1.OrderInfo) (*entity.Order, error) {
	items, err := mapProtoItemsToEntity(po.GetItems())
	if err != nil {
		return nil, err
	}

	var amounts [4]decimal.Decimal
	for i, raw := range []string{po.Subtotal, po.ShippingCost, po.Tax, po.Total} {
		if amounts[i], err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("order %s: bad amount %q: %w", po.Id, raw, err)
		}
	}

	return &entity.Order{
		ID:              po.Id,
		OrderNumber:     po.OrderNumber,
		Items:           items,
		CustomerName:    po.CustomerName,
		Email:           po.Email,
		Phone:           po.Phone,
		ShippingAddress: mapProtoAddressToEntity(po.ShippingAddress, po.Email),
		BillingAddress:  mapProtoAddressToEntity(po.BillingAddress, ""),
		Totals: entity.Totals{
			Subtotal:     amounts[0],
			ShippingCost: amounts[1],
			Tax:          amounts[2],
			Total:        amounts[3],
			Currency:     po.Currency,
		},
		PaymentMethod:     entity.PaymentMethod(po.PaymentMethod),
		PaymentStatus:     entity.PaymentStatus(po.PaymentStatus),
		Status:            entity.OrderStatus(po.Status),
		ProviderReference: po.ProviderReference,
		CreatedAt:         parseTime(po.CreatedAt),
		UpdatedAt:         parseTime(po.UpdatedAt),
	}, nil
}

func mapItemsToProto(items []entity.CartLineItem) []*orderv1.LineItem {
	out := make([]*orderv1.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, &orderv1.LineItem{
			ProductId: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Currency:  it.Currency,
			Quantity:  int32(it.Quantity),
			ImageRef:  it.ImageRef,
		})
	}
	return out
}

func mapProtoItemsToEntity(items []*orderv1.LineItem) ([]entity.CartLineItem, error) {
	out := make([]entity.CartLineItem, 0, len(items))
	for _, it := range items {
		price, err := decimal.NewFromString(it.GetUnitPrice())
		if err != nil {
			return nil, fmt.Errorf("item %s: bad unit price %q: %w", it.GetProductId(), it.GetUnitPrice(), err)
		}
		out = append(out, entity.CartLineItem{
			ProductID: it.GetProductId(),
			Name:      it.GetName(),
			UnitPrice: price,
			Currency:  it.GetCurrency(),
			Quantity:  int(it.GetQuantity()),
			ImageRef:  it.GetImageRef(),
		})
	}
	return out, nil
}

func mapAddressToProto(a entity.Address) *orderv1.Address {
	return &orderv1.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

func mapProtoAddressToEntity(a *orderv1.Address, email string) entity.Address {
	if a == nil {
		return entity.Address{}
	}
	return entity.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		Email:      email,
	}
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
