package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, ParseBrokers(" k1:9092, ,k2:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestKafkaPublisherKeysByOrder(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:            "o-1",
		OrderNumber:   "ORD-1",
		Total:         decimal.RequireFromString("54"),
		Currency:      "USD",
		PaymentMethod: domain.MethodOnline,
		Status:        domain.StatusCreated,
		PaymentStatus: domain.PaymentUnpaid,
	}

	err := p.Publish(context.Background(),
		domain.NewEvent(domain.EventOrderCreated, order, now),
		domain.NewEvent(domain.EventPaymentUpdated, order, now),
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "o-1", string(w.msgs[0].Key))
	assert.Equal(t, "order.created", string(w.msgs[0].Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, domain.EventPaymentUpdated, decoded.Type)
	assert.Equal(t, "54.00", decoded.Total)
	assert.Equal(t, now, decoded.OccurredAt)
}
