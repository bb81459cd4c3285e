package mappers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors/constants"
	orderv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/orderv1"
)

// OrderFromProto builds an unsaved order; identity and lifecycle fields are
// left for the service to assign.
func OrderFromProto(ctx context.Context, req *orderv1.CreateOrderRequest) (*domain.Order, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", domain.ErrInvalidOrder)
	}

	items, err := mapItemsFromProto(req.GetItems())
	if err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, 4)
	for i, raw := range []struct{ name, value string }{
		{"subtotal", req.Subtotal},
		{"shipping_cost", req.ShippingCost},
		{"tax", req.Tax},
		{"total", req.Total},
	} {
		amounts[i], err = parseAmount(raw.name, raw.value)
		if err != nil {
			return nil, err
		}
	}

	return &domain.Order{
		Items:           items,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		ShippingAddress: addressFromProto(req.ShippingAddress),
		BillingAddress:  addressFromProto(req.BillingAddress),
		Subtotal:        amounts[0],
		ShippingCost:    amounts[1],
		Tax:             amounts[2],
		Total:           amounts[3],
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  interceptors.GetMetadataValue(ctx, constants.HeaderXIdempotencyKey),
		RequestID:       interceptors.GetMetadataValue(ctx, constants.HeaderXRequestId),
	}, nil
}

func OrderToProto(o *domain.Order) *orderv1.OrderInfo {
	if o == nil {
		return nil
	}

	return &orderv1.OrderInfo{
		Id:                o.ID,
		OrderNumber:       o.OrderNumber,
		Items:             mapItemsToProto(o.Items),
		CustomerName:      o.CustomerName,
		Email:             o.Email,
		Phone:             o.Phone,
		ShippingAddress:   addressToProto(o.ShippingAddress),
		BillingAddress:    addressToProto(o.BillingAddress),
		Subtotal:          o.Subtotal.StringFixed(2),
		ShippingCost:      o.ShippingCost.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		Currency:          o.Currency,
		PaymentMethod:     orderv1.PaymentMethod(o.PaymentMethod),
		PaymentStatus:     orderv1.PaymentStatus(o.PaymentStatus),
		Status:            orderv1.Status(o.Status),
		ProviderReference: o.ProviderReference,
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:         o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func OrdersToProto(orders []*domain.Order) []*orderv1.OrderInfo {
	out := make([]*orderv1.OrderInfo, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderToProto(o))
	}
	return out
}

func mapItemsFromProto(pbItems []*orderv1.LineItem) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(pbItems))
	for _, item := range pbItems {
		if item == nil {
			continue
		}
		price, err := parseAmount("unit_price", item.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID: item.ProductId,
			Name:      item.Name,
			UnitPrice: price,
			Currency:  item.Currency,
			Quantity:  int(item.Quantity),
			ImageRef:  item.ImageRef,
		})
	}
	return items, nil
}

func mapItemsToProto(domainItems []domain.OrderItem) []*orderv1.LineItem {
	pbItems := make([]*orderv1.LineItem, len(domainItems))
	for i, item := range domainItems {
		pbItems[i] = &orderv1.LineItem{
			ProductId: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice.String(),
			Currency:  item.Currency,
			Quantity:  int32(item.Quantity),
			ImageRef:  item.ImageRef,
		}
	}
	return pbItems
}

func addressFromProto(a *orderv1.Address) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return domain.Address{
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

func addressToProto(a domain.Address) *orderv1.Address {
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

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", domain.ErrInvalidOrder, field, raw)
	}
	return d, nil
}
