package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator/checkoutlog"
)

// fakeBackend deduplicates on the idempotency key like the order service.
type fakeBackend struct {
	mu          sync.Mutex
	orders      map[string]*entity.Order
	byKey       map[string]string
	keys        []string
	createErrs  []error
	lostReplies []error // returned after the order is stored
	updateErrs  []error
	updateCalls int
	seq         int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{orders: make(map[string]*entity.Order), byKey: make(map[string]string)}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (b *fakeBackend) createCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys)
}

func (b *fakeBackend) CreateOrder(_ context.Context, key string, req entity.CreateOrderRequest) (*entity.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.keys = append(b.keys, key)
	if err := pop(&b.createErrs); err != nil {
		return nil, err
	}
	if id, ok := b.byKey[key]; ok {
		c := *b.orders[id]
		return &c, nil
	}

	b.seq++
	o := &entity.Order{
		ID:              fmt.Sprintf("o-%d", b.seq),
		OrderNumber:     fmt.Sprintf("ORD-%d", b.seq),
		Items:           req.Items,
		CustomerName:    req.CustomerName,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Totals:          req.Totals,
		PaymentMethod:   req.PaymentMethod,
		Status:          entity.OrderCreated,
		PaymentStatus:   entity.PaymentUnpaid,
		CreatedAt:       time.Now(),
	}
	if req.PaymentMethod == entity.PaymentCashOnDelivery {
		o.Status = entity.OrderCompleted
		o.PaymentStatus = entity.PaymentPendingCollection
	}
	b.orders[o.ID] = o
	b.byKey[key] = o.ID
	if err := pop(&b.lostReplies); err != nil {
		return nil, err
	}
	c := *o
	return &c, nil
}

func (b *fakeBackend) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

func (b *fakeBackend) UpdatePayment(_ context.Context, orderID string, update entity.PaymentUpdate) (*entity.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.updateCalls++
	if err := pop(&b.updateErrs); err != nil {
		return nil, err
	}
	o, ok := b.orders[orderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	if o.Status.IsTerminal() {
		if o.ProviderReference == update.ProviderReference {
			c := *o
			return &c, nil
		}
		return nil, entity.ErrOrderImmutable
	}
	o.ProviderReference = update.ProviderReference
	o.PaymentStatus = update.Status
	o.Status = entity.OrderCompleted
	c := *o
	return &c, nil
}

func (b *fakeBackend) GetOrder(_ context.Context, id string) (*entity.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (b *fakeBackend) GetOrderByNumber(ctx context.Context, orderNumber string) (*entity.Order, error) {
	b.mu.Lock()
	var id string
	for _, o := range b.orders {
		if o.OrderNumber == orderNumber {
			id = o.ID
		}
	}
	b.mu.Unlock()
	return b.GetOrder(ctx, id)
}

func (b *fakeBackend) ListAwaitingPayment(_ context.Context, olderThan time.Duration, limit int) ([]*entity.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*entity.Order
	for _, o := range b.orders {
		if o.PaymentMethod == entity.PaymentOnline && o.Status == entity.OrderCreated && o.CreatedAt.Before(cutoff) {
			c := *o
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *fakeBackend) order(id string) *entity.Order {
	o, _ := b.GetOrder(context.Background(), id)
	return o
}

type mockWallet struct {
	mock.Mock
}

func (m *mockWallet) Capture(ctx context.Context, req entity.CaptureRequest) (*entity.Capture, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*entity.Capture)
	return c, args.Error(1)
}

func (m *mockWallet) LookupCapture(ctx context.Context, invoiceID string) (*entity.Capture, error) {
	args := m.Called(ctx, invoiceID)
	c, _ := args.Get(0).(*entity.Capture)
	return c, args.Error(1)
}

// flakyCarts fails Clear while failClear is set.
type flakyCarts struct {
	ports.CartStore
	mu        sync.Mutex
	failClear bool
}

func (c *flakyCarts) setFailClear(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failClear = v
}

func (c *flakyCarts) Clear(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	fail := c.failClear
	c.mu.Unlock()
	if fail {
		return errors.New("cart store unavailable")
	}
	return c.CartStore.Clear(ctx, sessionID)
}

type memoryLog struct {
	mu      sync.Mutex
	entries []checkoutlog.Entry
}

func (l *memoryLog) Save(_ context.Context, entry *checkoutlog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *memoryLog) GetLatest(_ context.Context, sessionID string) (*checkoutlog.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].SessionID == sessionID {
			e := l.entries[i]
			return &e, nil
		}
	}
	return nil, checkoutlog.ErrNotFound
}

func (l *memoryLog) states(sessionID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.SessionID == sessionID {
			out = append(out, e.State)
		}
	}
	return out
}
