package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
)

func seedOnlineOrder(t *testing.T, b *fakeBackend, key string, total int64, age time.Duration) *entity.Order {
	t.Helper()
	o, err := b.CreateOrder(context.Background(), key, entity.CreateOrderRequest{
		Totals:        entity.Totals{Total: decimal.NewFromInt(total), Currency: "USD"},
		PaymentMethod: entity.PaymentOnline,
	})
	require.NoError(t, err)

	b.mu.Lock()
	b.orders[o.ID].CreatedAt = time.Now().Add(-age)
	b.mu.Unlock()
	return o
}

func TestReconcilerSettlesCapturedOrders(t *testing.T) {
	backend := newFakeBackend()
	wallet := &mockWallet{}
	m := metrics.NewCheckoutMetrics(prometheus.NewRegistry())

	captured := seedOnlineOrder(t, backend, "k1", 54, time.Hour)
	abandoned := seedOnlineOrder(t, backend, "k2", 20, time.Hour)
	mismatched := seedOnlineOrder(t, backend, "k3", 30, time.Hour)
	fresh := seedOnlineOrder(t, backend, "k4", 54, 0)

	wallet.On("LookupCapture", mock.Anything, captured.OrderNumber).Return(completedCapture("cap-1", "54"), nil)
	wallet.On("LookupCapture", mock.Anything, abandoned.OrderNumber).Return(nil, entity.ErrCaptureNotFound)
	wallet.On("LookupCapture", mock.Anything, mismatched.OrderNumber).Return(completedCapture("cap-3", "31"), nil)

	r := NewReconciler(backend, wallet, ReconcilerOptions{Grace: time.Minute, BatchSize: 10, Timeout: time.Second}, m)
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciled))

	paid := backend.order(captured.ID)
	assert.Equal(t, entity.OrderCompleted, paid.Status)
	assert.Equal(t, entity.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "cap-1", paid.ProviderReference)

	assert.Equal(t, entity.OrderCreated, backend.order(abandoned.ID).Status)
	assert.Equal(t, entity.OrderCreated, backend.order(mismatched.ID).Status)
	wallet.AssertNotCalled(t, "LookupCapture", mock.Anything, fresh.OrderNumber)
	wallet.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
}

func TestReconcilerReportsLookupFailures(t *testing.T) {
	backend := newFakeBackend()
	wallet := &mockWallet{}
	o := seedOnlineOrder(t, backend, "k1", 54, time.Hour)
	wallet.On("LookupCapture", mock.Anything, o.OrderNumber).Return(nil, errors.New("wallet unavailable"))

	r := NewReconciler(backend, wallet, ReconcilerOptions{Grace: time.Minute, BatchSize: 10}, nil)
	n, err := r.RunOnce(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "wallet unavailable")
}

func TestReconcilerRunStopsWithContext(t *testing.T) {
	r := NewReconciler(newFakeBackend(), &mockWallet{}, ReconcilerOptions{Interval: 5 * time.Millisecond, Grace: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
