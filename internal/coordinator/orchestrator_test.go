package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/delivery"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/pricing"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/adapters/cartstore"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sid = "session-1"

type harness struct {
	orch    *Orchestrator
	carts   *flakyCarts
	backend *fakeBackend
	wallet  *mockWallet
	log     *memoryLog
	metrics *metrics.CheckoutMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		carts:   &flakyCarts{CartStore: cartstore.NewMemoryStore()},
		backend: newFakeBackend(),
		wallet:  &mockWallet{},
		log:     &memoryLog{},
		metrics: metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
	}
	h.orch = h.newOrchestrator()
	return h
}

func (h *harness) newOrchestrator() *Orchestrator {
	return NewOrchestrator(Options{
		Carts:    h.carts,
		Orders:   h.backend,
		Payments: h.wallet,
		Pricing: pricing.NewEngine(
			pricing.FlatShipping{Threshold: decimal.NewFromInt(50), Fee: decimal.NewFromInt(10)},
			pricing.FlatTax{Rate: decimal.RequireFromString("0.10")},
		),
		Validator: delivery.NewValidator([]string{"luxor", "al uqsur"}),
		Log:       h.log,
		Metrics:   h.metrics,
		Timeouts:  Timeouts{CreateOrder: time.Second, Capture: time.Second, Reconcile: time.Second},
		Currency:  "USD",
	})
}

func (h *harness) addToCart(t *testing.T, productID string, price string, qty int) {
	t.Helper()
	_, err := h.carts.Mutate(context.Background(), sid, func(c *entity.Cart) error {
		return c.Add(entity.CartLineItem{
			ProductID: productID,
			Name:      productID,
			UnitPrice: decimal.RequireFromString(price),
			Currency:  "USD",
			Quantity:  qty,
		})
	})
	require.NoError(t, err)
}

func (h *harness) cartEmpty(t *testing.T) bool {
	t.Helper()
	cart, err := h.carts.Get(context.Background(), sid)
	require.NoError(t, err)
	return cart.IsEmpty()
}

func luxorAddress() entity.Address {
	return entity.Address{
		FirstName:  "Nour",
		LastName:   "Hassan",
		Street:     "1 Corniche St",
		City:       "LUXOR ",
		State:      "Luxor",
		PostalCode: "85951",
		Country:    "EG",
		Email:      "nour@example.com",
	}
}

func form(method entity.PaymentMethod) entity.CheckoutForm {
	return entity.CheckoutForm{
		ShippingAddress:       luxorAddress(),
		BillingSameAsShipping: true,
		PaymentMethod:         method,
	}
}

func completedCapture(id string, amount string) *entity.Capture {
	return &entity.Capture{
		ID:       id,
		Status:   entity.CaptureCompleted,
		Amount:   decimal.RequireFromString(amount),
		Currency: "USD",
	}
}

func TestReviewFreezesTotals(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)

	quote, err := h.orch.Review(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, quote.Totals.Subtotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, quote.Totals.ShippingCost.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.Totals.Tax.Equal(decimal.NewFromInt(4)))
	assert.True(t, quote.Totals.Total.Equal(decimal.NewFromInt(54)))
	assert.Equal(t, "USD", quote.Totals.Currency)

	_, err = h.orch.Review(context.Background(), "empty-session")
	assert.ErrorIs(t, err, entity.ErrEmptyCart)
}

func TestSubmitCashOnDelivery(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 3)

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, entity.PaymentPendingCollection, out.PaymentStatus)
	assert.Equal(t, "/orders/ORD-1/confirmation", out.ConfirmationURL)
	assert.True(t, h.cartEmpty(t))
	h.wallet.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)

	// subtotal 60 ships free
	order := h.backend.order(out.OrderID)
	assert.True(t, order.Totals.ShippingCost.IsZero())
	assert.True(t, order.Totals.Total.Equal(decimal.NewFromInt(66)))
	assert.Equal(t, "LUXOR", order.ShippingAddress.City)
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)

	assert.Equal(t, []string{"VALIDATING", "CREATING", "CREATED", "COMPLETED"}, h.log.states(sid))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Transitions.WithLabelValues("COMPLETED")))
}

func TestSubmitEmptyCart(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	assert.ErrorIs(t, err, entity.ErrEmptyCart)
	assert.Zero(t, h.backend.createCalls())
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		form   func() entity.CheckoutForm
		reason string
		field  string
	}{
		{
			name: "out of area",
			form: func() entity.CheckoutForm {
				f := form(entity.PaymentOnline)
				f.ShippingAddress.City = "Cairo"
				return f
			},
			reason: entity.ReasonOutOfArea,
			field:  "shipping_address.city",
		},
		{
			name: "whitespace first name",
			form: func() entity.CheckoutForm {
				f := form(entity.PaymentOnline)
				f.ShippingAddress.FirstName = "   "
				return f
			},
			reason: entity.ReasonMissingField,
			field:  "shipping_address.first_name",
		},
		{
			name: "bad email",
			form: func() entity.CheckoutForm {
				f := form(entity.PaymentOnline)
				f.ShippingAddress.Email = "nour-at-example"
				return f
			},
			reason: entity.ReasonInvalidEmail,
			field:  "shipping_address.email",
		},
		{
			name: "billing street missing",
			form: func() entity.CheckoutForm {
				f := form(entity.PaymentOnline)
				f.BillingSameAsShipping = false
				f.BillingAddress = luxorAddress()
				f.BillingAddress.Street = ""
				f.BillingAddress.Email = ""
				return f
			},
			reason: entity.ReasonMissingField,
			field:  "billing_address.street",
		},
		{
			name: "unknown payment method",
			form: func() entity.CheckoutForm {
				return form("bank-transfer")
			},
			reason: entity.ReasonInvalidPaymentMethod,
			field:  "payment_method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.addToCart(t, "scarf", "20", 2)

			_, err := h.orch.Submit(context.Background(), sid, tt.form())
			var ve *entity.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.reason, ve.Reason)
			assert.Equal(t, tt.field, ve.Field)

			assert.Zero(t, h.backend.createCalls())
			assert.False(t, h.cartEmpty(t))

			status, err := h.orch.Status(context.Background(), sid)
			require.NoError(t, err)
			assert.Equal(t, StateRejected, status.State)
		})
	}
}

func TestSubmitServiceAreaErrorIsTyped(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	f := form(entity.PaymentOnline)
	f.ShippingAddress.City = "Cairo"

	_, err := h.orch.Submit(context.Background(), sid, f)
	var sa *entity.ServiceAreaError
	require.ErrorAs(t, err, &sa)
	assert.Equal(t, "Cairo", sa.City)
}

func TestSubmitBackendUnavailableReusesIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	h.backend.createErrs = []error{errors.New("connection refused")}

	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	var unavailable *entity.BackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.True(t, entity.IsRetryable(err))

	status, err := h.orch.Status(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateBackendUnavailable, status.State)
	assert.Empty(t, status.OrderID)

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	assert.Equal(t, StateCreated, out.State)

	require.Len(t, h.backend.keys, 2)
	assert.Equal(t, h.backend.keys[0], h.backend.keys[1])
	assert.NotEmpty(t, h.backend.keys[0])
}

func TestReviewAfterLostCreateReplyUsesNewKey(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	h.backend.lostReplies = []error{context.DeadlineExceeded}

	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.True(t, entity.IsRetryable(err))
	require.Equal(t, 1, h.backend.orderCount())

	h.addToCart(t, "lamp", "100", 1)
	quote, err := h.orch.Review(context.Background(), sid)
	require.NoError(t, err)
	// subtotal 140 ships free
	assert.True(t, quote.Totals.Total.Equal(decimal.NewFromInt(154)))

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)

	require.Len(t, h.backend.keys, 2)
	assert.NotEqual(t, h.backend.keys[0], h.backend.keys[1])
	order := h.backend.order(out.OrderID)
	assert.Len(t, order.Items, 2)
	assert.True(t, order.Totals.Total.Equal(quote.Totals.Total))
	assert.True(t, out.Quote.Totals.Total.Equal(order.Totals.Total))
}

func TestReviewOfUnchangedCartKeepsKey(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	h.backend.lostReplies = []error{context.DeadlineExceeded}

	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.Error(t, err)

	first, err := h.orch.Review(context.Background(), sid)
	require.NoError(t, err)
	again, err := h.orch.Review(context.Background(), sid)
	require.NoError(t, err)
	assert.Same(t, first, again)

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	require.Len(t, h.backend.keys, 2)
	assert.Equal(t, h.backend.keys[0], h.backend.keys[1])
	assert.Equal(t, 1, h.backend.orderCount())
	assert.Equal(t, "o-1", out.OrderID)
}

func TestSubmitRejectedOrderIsNotRetryable(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	h.backend.createErrs = []error{fmt.Errorf("%w: subtotal does not match items", entity.ErrOrderRejected)}

	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.ErrorIs(t, err, entity.ErrOrderRejected)
	assert.False(t, entity.IsRetryable(err))
	var unavailable *entity.BackendUnavailableError
	assert.False(t, errors.As(err, &unavailable))

	status, err := h.orch.Status(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, status.State)
	assert.Empty(t, status.OrderID)

	_, err = h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	require.Len(t, h.backend.keys, 2)
	assert.NotEqual(t, h.backend.keys[0], h.backend.keys[1])
}

func TestDoubleSubmitCreatesOneOrder(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)

	const n = 8
	var (
		wg       sync.WaitGroup
		outcomes = make([]*Outcome, n)
		errs     = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, outcomes[0].OrderID, outcomes[i].OrderID)
	}
	assert.Equal(t, 1, h.backend.createCalls())
}

func TestResubmitReturnsExistingOrder(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)

	first, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	second, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, entity.PaymentOnline, second.PaymentMethod)
	assert.Equal(t, 1, h.backend.createCalls())
}

func TestSubmitRefusesStaleQuote(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)

	_, err := h.orch.Review(context.Background(), sid)
	require.NoError(t, err)
	h.addToCart(t, "hat", "15", 1)

	_, err = h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	assert.ErrorIs(t, err, entity.ErrQuoteStale)
	assert.Zero(t, h.backend.createCalls())

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	order := h.backend.order(out.OrderID)
	assert.True(t, order.Totals.Subtotal.Equal(decimal.NewFromInt(55)))
	assert.True(t, out.Quote.Totals.Total.Equal(order.Totals.Total))
}

func TestPayOnline(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)

	created, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)
	assert.Equal(t, StateCreated, created.State)
	assert.False(t, h.cartEmpty(t))

	h.wallet.On("Capture", mock.Anything, mock.MatchedBy(func(req entity.CaptureRequest) bool {
		return req.InvoiceID == created.OrderNumber && req.Amount.Equal(decimal.NewFromInt(54)) && req.Currency == "USD"
	})).Return(completedCapture("cap-1", "54"), nil).Once()

	paid, err := h.orch.Pay(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, paid.State)
	assert.Equal(t, entity.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "cap-1", paid.ProviderReference)
	assert.True(t, h.cartEmpty(t))
	assert.Equal(t, entity.OrderCompleted, h.backend.order(created.OrderID).Status)
	h.wallet.AssertExpectations(t)

	_, err = h.orch.Pay(context.Background(), sid)
	assert.ErrorIs(t, err, entity.ErrNotPayable)
}

func TestPayCaptureFailureKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	created, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)

	h.wallet.On("Capture", mock.Anything, mock.Anything).Return(nil, errors.New("card declined")).Once()

	_, err = h.orch.Pay(context.Background(), sid)
	var providerErr *entity.PaymentProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, created.OrderNumber, providerErr.OrderNumber)

	status, err := h.orch.Status(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentFailed, status.State)
	assert.False(t, h.cartEmpty(t))
	assert.Equal(t, entity.PaymentUnpaid, h.backend.order(created.OrderID).PaymentStatus)

	h.wallet.On("Capture", mock.Anything, mock.Anything).Return(completedCapture("cap-2", "54"), nil).Once()
	paid, err := h.orch.Pay(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, paid.OrderID)
	assert.Equal(t, 1, h.backend.createCalls())
}

func TestPayReconciliationGapNeverCapturesTwice(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	_, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)

	h.wallet.On("Capture", mock.Anything, mock.Anything).Return(completedCapture("cap-1", "54"), nil).Once()
	h.backend.updateErrs = []error{errors.New("backend timeout")}

	_, err = h.orch.Pay(context.Background(), sid)
	var gap *entity.ReconciliationGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "cap-1", gap.ProviderReference)
	assert.False(t, h.cartEmpty(t))

	out, err := h.orch.Pay(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.True(t, h.cartEmpty(t))
	h.wallet.AssertNumberOfCalls(t, "Capture", 1)
	assert.Equal(t, 2, h.backend.updateCalls)
}

func TestPayRequiresPayableOrder(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Pay(context.Background(), sid)
	assert.ErrorIs(t, err, entity.ErrNoOrder)

	h.addToCart(t, "scarf", "20", 2)
	_, err = h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)

	_, err = h.orch.Pay(context.Background(), sid)
	assert.ErrorIs(t, err, entity.ErrNotPayable)
}

func TestCompletedSessionStartsOverWithNewCart(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	first, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)

	again, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, again.OrderID)

	h.addToCart(t, "hat", "15", 1)
	next, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, next.OrderID)
	assert.Equal(t, 2, h.backend.createCalls())
	assert.NotEqual(t, h.backend.keys[0], h.backend.keys[1])
}

func TestFailedCartClearIsRetried(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	h.carts.setFailClear(true)

	out, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.False(t, h.cartEmpty(t))

	h.carts.setFailClear(false)
	again, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)
	assert.Equal(t, out.OrderID, again.OrderID)
	assert.True(t, h.cartEmpty(t))
	assert.Equal(t, 1, h.backend.createCalls())
}

func TestStatusRestoresFromLog(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "scarf", "20", 2)
	created, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentOnline))
	require.NoError(t, err)

	_, err = h.orch.Status(context.Background(), "never-seen")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)

	restarted := h.newOrchestrator()
	status, err := restarted.Status(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, status.State)
	assert.Equal(t, created.OrderNumber, status.OrderNumber)
	require.NotNil(t, status.Quote)
	assert.True(t, status.Quote.Totals.Total.Equal(decimal.NewFromInt(54)))

	h.wallet.On("Capture", mock.Anything, mock.MatchedBy(func(req entity.CaptureRequest) bool {
		return req.InvoiceID == created.OrderNumber && req.Amount.Equal(decimal.NewFromInt(54))
	})).Return(completedCapture("cap-1", "54"), nil).Once()

	paid, err := restarted.Pay(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, paid.State)
	assert.Equal(t, 1, h.backend.createCalls())
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	h := newHarness(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.orch.now = func() time.Time { return clock }

	h.addToCart(t, "scarf", "20", 2)
	done, err := h.orch.Submit(context.Background(), sid, form(entity.PaymentCashOnDelivery))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, done.State)

	_, err = h.carts.Mutate(context.Background(), "session-2", func(c *entity.Cart) error {
		return c.Add(entity.CartLineItem{ProductID: "hat", UnitPrice: decimal.NewFromInt(15), Currency: "USD", Quantity: 1})
	})
	require.NoError(t, err)
	h.backend.createErrs = []error{errors.New("connection refused")}
	_, err = h.orch.Submit(context.Background(), "session-2", form(entity.PaymentOnline))
	require.Error(t, err)

	clock = clock.Add(DefaultSessionTTL + time.Minute)
	_, err = h.orch.Review(context.Background(), "session-3")
	require.ErrorIs(t, err, entity.ErrEmptyCart)

	h.orch.mu.Lock()
	_, completed := h.orch.sessions[sid]
	_, pending := h.orch.sessions["session-2"]
	_, fresh := h.orch.sessions["session-3"]
	h.orch.mu.Unlock()
	assert.False(t, completed)
	assert.True(t, pending, "a session holding an idempotency key stays")
	assert.True(t, fresh)

	status, err := h.orch.Status(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, done.OrderNumber, status.OrderNumber)
}

func TestAfterRestart(t *testing.T) {
	assert.Equal(t, StateIdle, StateCreating.afterRestart(false))
	assert.Equal(t, StateCreated, StateCreating.afterRestart(true))
	assert.Equal(t, StatePaymentFailed, StateSettling.afterRestart(true))
	assert.Equal(t, StateUnreconciled, StateUnreconciled.afterRestart(true))
}
