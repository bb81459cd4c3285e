package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/delivery"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/pricing"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator/checkoutlog"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
)

const tracerName = "github.com/jcmexdev/storefront-checkout/internal/coordinator"

// Timeouts bound each network call; zero means the caller's deadline only.
type Timeouts struct {
	CreateOrder time.Duration
	Capture     time.Duration
	Reconcile   time.Duration
}

type Options struct {
	Carts     ports.CartStore
	Orders    ports.OrderBackend
	Payments  ports.PaymentProvider
	Pricing   *pricing.Engine
	Validator *delivery.Validator
	// Log is optional; without it Status only knows in-memory sessions.
	Log      checkoutlog.Repository
	Metrics  *metrics.CheckoutMetrics
	Timeouts Timeouts
	// Currency is used when the cart does not carry one.
	Currency string
	// SessionTTL is how long an untouched session stays in memory once
	// nothing in it has to survive. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
}

const DefaultSessionTTL = 30 * time.Minute

type session struct {
	mu                sync.Mutex
	loaded            bool
	state             State
	quote             *entity.Quote
	idempotencyKey    string
	order             *entity.Order
	providerReference string
	confirmationURL   string
	cartPending       bool
	lastErr           string
	touched           time.Time // guarded by Orchestrator.mu
}

func (s *session) reset() {
	s.state = StateIdle
	s.quote = nil
	s.idempotencyKey = ""
	s.order = nil
	s.providerReference = ""
	s.confirmationURL = ""
	s.cartPending = false
	s.lastErr = ""
}

// disposable reports whether dropping the session loses nothing the log
// cannot give back: a finished checkout with its cart cleared, or one that
// never handed a key to the backend.
func (s *session) disposable() bool {
	if s.state == StateCompleted {
		return !s.cartPending
	}
	return s.order == nil && s.idempotencyKey == ""
}

func (s *session) outcome(sessionID string) *Outcome {
	out := &Outcome{
		SessionID:         sessionID,
		State:             s.state,
		Quote:             s.quote,
		ProviderReference: s.providerReference,
		ConfirmationURL:   s.confirmationURL,
		LastError:         s.lastErr,
	}
	if s.order != nil {
		out.OrderID = s.order.ID
		out.OrderNumber = s.order.OrderNumber
		out.PaymentMethod = s.order.PaymentMethod
		out.PaymentStatus = s.order.PaymentStatus
	}
	return out
}

// Orchestrator drives a checkout session from cart to paid order. Calls for
// one session are serialized, and duplicate concurrent Submit or Pay calls
// share a single execution.
type Orchestrator struct {
	carts        ports.CartStore
	orders       ports.OrderBackend
	pricing      *pricing.Engine
	validator    *delivery.Validator
	settlement   *Settlement
	confirmation *Confirmation
	log          checkoutlog.Repository
	metrics      *metrics.CheckoutMetrics
	timeouts     Timeouts
	currency     string
	tracer       trace.Tracer
	now          func() time.Time
	newKey       func() string
	sessionTTL   time.Duration

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
	flight    singleflight.Group
}

func NewOrchestrator(opts Options) *Orchestrator {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCheckoutMetrics(prometheus.NewRegistry())
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Orchestrator{
		carts:        opts.Carts,
		orders:       opts.Orders,
		pricing:      opts.Pricing,
		validator:    opts.Validator,
		settlement:   NewSettlement(opts.Payments, opts.Orders),
		confirmation: NewConfirmation(opts.Carts),
		log:          opts.Log,
		metrics:      m,
		timeouts:     opts.Timeouts,
		currency:     opts.Currency,
		tracer:       otel.Tracer(tracerName),
		now:          func() time.Time { return time.Now().UTC() },
		newKey:       uuid.NewString,
		sessionTTL:   ttl,
		sessions:     make(map[string]*session),
	}
}

// Review freezes the quote shown to the user. Once an order exists the
// quote it was created from is returned unchanged.
func (o *Orchestrator) Review(ctx context.Context, sessionID string) (*entity.Quote, error) {
	s := o.lock(ctx, sessionID)
	defer s.mu.Unlock()

	if s.order != nil && s.state != StateCompleted {
		return s.quote, nil
	}

	cart, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if s.state == StateCompleted && !o.startOver(ctx, sessionID, s, cart) {
		return s.quote, nil
	}
	if cart.IsEmpty() {
		return nil, entity.ErrEmptyCart
	}

	if s.quote != nil && s.quote.Matches(cart) {
		return s.quote, nil
	}
	// A failed create may still have committed under the old key; a new
	// quote must never reuse it.
	s.quote = o.freeze(cart)
	s.idempotencyKey = ""
	return s.quote, nil
}

// Submit validates the form and creates the order. Cash-on-delivery
// orders complete here; online orders stop in Created and wait for Pay.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, form entity.CheckoutForm) (*Outcome, error) {
	v, err, _ := o.flight.Do("submit:"+sessionID, func() (any, error) {
		return o.submit(ctx, sessionID, form)
	})
	out, _ := v.(*Outcome)
	return out, err
}

func (o *Orchestrator) submit(ctx context.Context, sessionID string, form entity.CheckoutForm) (*Outcome, error) {
	s := o.lock(ctx, sessionID)
	defer s.mu.Unlock()

	cart, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if s.state == StateCompleted && !o.startOver(ctx, sessionID, s, cart) {
		return s.outcome(sessionID), nil
	}
	if s.order != nil {
		return s.outcome(sessionID), nil
	}
	if cart.IsEmpty() {
		return nil, entity.ErrEmptyCart
	}

	o.transition(ctx, sessionID, s, StateValidating, "", nil)
	shipping, billing, err := o.validate(form)
	if err != nil {
		o.transition(ctx, sessionID, s, StateRejected, "", err)
		return nil, err
	}

	if s.quote == nil {
		s.quote = o.freeze(cart)
	} else if !s.quote.Matches(cart) {
		// A new quote means a new order; the old key may already name one.
		s.quote = nil
		s.idempotencyKey = ""
		o.transition(ctx, sessionID, s, StateRejected, "", entity.ErrQuoteStale)
		return nil, entity.ErrQuoteStale
	}
	if s.idempotencyKey == "" {
		s.idempotencyKey = o.newKey()
	}

	o.transition(ctx, sessionID, s, StateCreating, "", nil)
	step := NewCreateOrderStep(o.orders, s.idempotencyKey, entity.CreateOrderRequest{
		Items:           s.quote.Items,
		CustomerName:    shipping.FullName(),
		Email:           shipping.Email,
		Phone:           shipping.Phone,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Totals:          s.quote.Totals,
		PaymentMethod:   form.PaymentMethod,
	})
	if err := o.run(ctx, step, o.timeouts.CreateOrder); err != nil {
		if errors.Is(err, entity.ErrOrderRejected) {
			// nothing was stored; the same request would be refused again
			s.quote = nil
			s.idempotencyKey = ""
			o.transition(ctx, sessionID, s, StateRejected, step.Name(), err)
			return nil, err
		}
		err = &entity.BackendUnavailableError{Err: err}
		o.transition(ctx, sessionID, s, StateBackendUnavailable, step.Name(), err)
		return nil, err
	}
	s.order = step.order
	o.transition(ctx, sessionID, s, StateCreated, step.Name(), nil)

	if s.order.PaymentMethod == entity.PaymentCashOnDelivery {
		o.complete(ctx, sessionID, s)
	}
	return s.outcome(sessionID), nil
}

// Pay captures the frozen total and records the capture on the order. After
// a reconciliation gap it only repeats the backend update.
func (o *Orchestrator) Pay(ctx context.Context, sessionID string) (*Outcome, error) {
	v, err, _ := o.flight.Do("pay:"+sessionID, func() (any, error) {
		return o.pay(ctx, sessionID)
	})
	out, _ := v.(*Outcome)
	return out, err
}

func (o *Orchestrator) pay(ctx context.Context, sessionID string) (*Outcome, error) {
	s := o.lock(ctx, sessionID)
	defer s.mu.Unlock()

	if s.order == nil {
		return nil, entity.ErrNoOrder
	}
	if s.order.PaymentMethod != entity.PaymentOnline || !s.state.Payable() {
		return nil, fmt.Errorf("%w: checkout is %s", entity.ErrNotPayable, s.state)
	}

	captured := s.state == StateUnreconciled
	o.transition(ctx, sessionID, s, StateSettling, "", nil)

	if !captured {
		step := NewCaptureStep(o.settlement, s.order)
		if err := o.run(ctx, step, o.timeouts.Capture); err != nil {
			err = &entity.PaymentProviderError{OrderNumber: s.order.OrderNumber, Err: err}
			o.transition(ctx, sessionID, s, StatePaymentFailed, step.Name(), err)
			return nil, err
		}
		s.providerReference = step.capture.ID
	}

	step := NewReconcileStep(o.settlement, s.order.ID, s.providerReference)
	if err := o.run(ctx, step, o.timeouts.Reconcile); err != nil {
		err = &entity.ReconciliationGapError{OrderID: s.order.ID, ProviderReference: s.providerReference, Err: err}
		o.transition(ctx, sessionID, s, StateUnreconciled, step.Name(), err)
		return nil, err
	}
	s.order = step.order

	o.complete(ctx, sessionID, s)
	return s.outcome(sessionID), nil
}

// Status reports the session, reloading it from the checkout log when this
// process has not seen it yet.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (*Outcome, error) {
	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	if ok {
		s.touched = o.now()
	}
	o.mu.Unlock()

	if !ok {
		restored := &session{state: StateIdle, loaded: true}
		if !o.restore(ctx, sessionID, restored) {
			return nil, entity.ErrSessionNotFound
		}
		o.mu.Lock()
		if s, ok = o.sessions[sessionID]; !ok {
			s = restored
			o.sessions[sessionID] = s
		}
		s.touched = o.now()
		o.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted && s.cartPending {
		o.retryClear(ctx, sessionID, s)
	}
	return s.outcome(sessionID), nil
}

// lock returns the session locked, restoring it from the log on first use.
func (o *Orchestrator) lock(ctx context.Context, sessionID string) *session {
	now := o.now()
	o.mu.Lock()
	o.evictIdle(now)
	s, ok := o.sessions[sessionID]
	if !ok {
		s = &session{state: StateIdle}
		o.sessions[sessionID] = s
	}
	s.touched = now
	o.mu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		o.restore(ctx, sessionID, s)
		s.loaded = true
	}
	return s
}

// evictIdle drops disposable sessions untouched for sessionTTL. It sweeps at
// most once per sessionTTL and skips sessions that are in use. Caller holds
// o.mu.
func (o *Orchestrator) evictIdle(now time.Time) {
	if now.Sub(o.lastSweep) < o.sessionTTL {
		return
	}
	o.lastSweep = now
	for id, s := range o.sessions {
		if now.Sub(s.touched) < o.sessionTTL || !s.mu.TryLock() {
			continue
		}
		if s.disposable() {
			delete(o.sessions, id)
		}
		s.mu.Unlock()
	}
}

func (o *Orchestrator) restore(ctx context.Context, sessionID string, s *session) bool {
	if o.log == nil {
		return false
	}
	entry, err := o.log.GetLatest(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, checkoutlog.ErrNotFound) {
			slog.WarnContext(ctx, "checkout log unavailable", "session_id", sessionID, "error", err)
		}
		return false
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(entry.Payload), &snap); err != nil {
		slog.WarnContext(ctx, "checkout log entry unreadable", "session_id", sessionID, "error", err)
		return false
	}

	s.quote = snap.Quote
	s.idempotencyKey = snap.IdempotencyKey
	s.providerReference = snap.ProviderReference
	s.confirmationURL = snap.ConfirmationURL
	s.cartPending = snap.CartPending
	s.lastErr = snap.LastError
	if snap.OrderID != "" && snap.Quote != nil {
		s.order = &entity.Order{
			ID:            snap.OrderID,
			OrderNumber:   snap.OrderNumber,
			Items:         snap.Quote.Items,
			Totals:        snap.Quote.Totals,
			PaymentMethod: snap.PaymentMethod,
			PaymentStatus: snap.PaymentStatus,
		}
	}
	s.state = snap.State.afterRestart(s.order != nil)

	slog.InfoContext(ctx, "checkout session restored", "session_id", sessionID, "state", s.state, "order_number", snap.OrderNumber)
	return true
}

func (o *Orchestrator) validate(form entity.CheckoutForm) (entity.Address, entity.Address, error) {
	shipping := form.ShippingAddress.Trimmed()
	if err := o.validator.Validate(shipping); err != nil {
		return entity.Address{}, entity.Address{}, qualify(err, "shipping_address")
	}

	billing := shipping
	if !form.BillingSameAsShipping {
		billing = form.BillingAddress.Trimmed()
		if err := o.validator.ValidatePresence(billing); err != nil {
			return entity.Address{}, entity.Address{}, qualify(err, "billing_address")
		}
	}

	if !form.PaymentMethod.Valid() {
		return entity.Address{}, entity.Address{}, &entity.ValidationError{
			Reason: entity.ReasonInvalidPaymentMethod,
			Field:  "payment_method",
		}
	}
	return shipping, billing, nil
}

// qualify prefixes the failing field with the address it belongs to.
func qualify(err error, prefix string) error {
	var ve *entity.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		ve.Field = prefix + "." + ve.Field
	}
	return err
}

func (o *Orchestrator) freeze(cart *entity.Cart) *entity.Quote {
	return &entity.Quote{
		Items:    cart.Snapshot(),
		Totals:   o.pricing.ComputeTotals(cart.Subtotal(), cart.Currency(o.currency)),
		FrozenAt: o.now(),
	}
}

// startOver resets a completed session once the cart holds a new purchase.
// It reports whether the session was reset.
func (o *Orchestrator) startOver(ctx context.Context, sessionID string, s *session, cart *entity.Cart) bool {
	if s.cartPending {
		// the cart still holds the completed order's items
		o.retryClear(ctx, sessionID, s)
		return false
	}
	if cart.IsEmpty() {
		return false
	}
	s.reset()
	return true
}

func (o *Orchestrator) complete(ctx context.Context, sessionID string, s *session) {
	path, err := o.confirmation.Complete(ctx, sessionID, s.order.OrderNumber)
	s.confirmationURL = path
	s.cartPending = err != nil
	if err != nil {
		slog.WarnContext(ctx, "cart not cleared after checkout",
			"session_id", sessionID,
			"order_number", s.order.OrderNumber,
			"error", err,
		)
	}
	o.transition(ctx, sessionID, s, StateCompleted, "", nil)
}

func (o *Orchestrator) retryClear(ctx context.Context, sessionID string, s *session) {
	if err := o.carts.Clear(ctx, sessionID); err != nil {
		slog.WarnContext(ctx, "cart still not cleared", "session_id", sessionID, "error", err)
		return
	}
	s.cartPending = false
}

func (o *Orchestrator) run(ctx context.Context, step Step, timeout time.Duration) error {
	ctx, span := o.tracer.Start(ctx, "coordinator."+step.Name())
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := step.Execute(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.metrics.StepDuration.WithLabelValues(step.Name(), result).Observe(time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) transition(ctx context.Context, sessionID string, s *session, to State, step string, cause error) {
	s.state = to
	s.lastErr = ""
	if cause != nil {
		s.lastErr = cause.Error()
	}
	o.metrics.Transitions.WithLabelValues(string(to)).Inc()

	attrs := []any{"session_id", sessionID, "state", to}
	if s.order != nil {
		attrs = append(attrs, "order_id", s.order.ID, "order_number", s.order.OrderNumber)
	}
	if cause != nil {
		slog.WarnContext(ctx, "checkout transition", append(attrs, "error", cause)...)
	} else {
		slog.InfoContext(ctx, "checkout transition", attrs...)
	}

	if o.log == nil {
		return
	}
	payload, err := json.Marshal(snapshot{
		Outcome:        *s.outcome(sessionID),
		IdempotencyKey: s.idempotencyKey,
		CartPending:    s.cartPending,
	})
	if err != nil {
		slog.ErrorContext(ctx, "encode checkout snapshot", "session_id", sessionID, "error", err)
		return
	}

	var errs []string
	if cause != nil {
		errs = []string{cause.Error()}
	}
	entry := checkoutlog.NewEntry(ctx, sessionID, string(to), step, string(payload), errs)
	if s.order != nil {
		entry.OrderID = s.order.ID
		entry.OrderNumber = s.order.OrderNumber
	}
	// the call that triggered the transition may have hit its deadline
	if err := o.log.Save(context.WithoutCancel(ctx), entry); err != nil {
		slog.WarnContext(ctx, "checkout log write failed", "session_id", sessionID, "error", err)
	}
}
