package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventPaymentUpdated EventType = "order.payment_updated"
	EventOrderCompleted EventType = "order.completed"
)

type Event struct {
	Type          EventType     `json:"type"`
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Total         string        `json:"total"`
	Currency      string        `json:"currency"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewEvent(t EventType, o *Order, now time.Time) Event {
	return Event{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total.StringFixed(2),
		Currency:      o.Currency,
		OccurredAt:    now,
	}
}

// EventPublisher announces order lifecycle changes. Publishing is best
// effort: the order is already committed when it runs.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}
