package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
)

type ReconcilerOptions struct {
	Interval time.Duration
	// Grace keeps the job away from orders a live session is still paying.
	Grace     time.Duration
	BatchSize int
	Timeout   time.Duration
}

// Reconciler closes reconciliation gaps in the background: online orders
// left unpaid whose capture exists at the provider are marked paid. It never
// captures and never touches carts.
type Reconciler struct {
	orders     ports.OrderBackend
	payments   ports.PaymentProvider
	settlement *Settlement
	opts       ReconcilerOptions
	reconciled prometheus.Counter
}

func NewReconciler(orders ports.OrderBackend, payments ports.PaymentProvider, opts ReconcilerOptions, m *metrics.CheckoutMetrics) *Reconciler {
	if m == nil {
		m = metrics.NewCheckoutMetrics(prometheus.NewRegistry())
	}
	return &Reconciler{
		orders:     orders,
		payments:   payments,
		settlement: NewSettlement(payments, orders),
		opts:       opts,
		reconciled: m.Reconciled,
	}
}

// Run ticks until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reconciler started", "interval", r.opts.Interval, "grace", r.opts.Grace)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				slog.WarnContext(ctx, "reconciliation pass incomplete", "reconciled", n, "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "reconciliation pass", "reconciled", n)
			}
		}
	}
}

// RunOnce settles one batch and returns how many orders it marked paid.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	orders, err := r.orders.ListAwaitingPayment(ctx, r.opts.Grace, r.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list orders awaiting payment: %w", err)
	}

	var (
		settled int
		errs    []error
	)
	for _, order := range orders {
		ok, err := r.settle(ctx, order)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			settled++
			r.reconciled.Inc()
		}
	}
	return settled, errors.Join(errs...)
}

func (r *Reconciler) settle(ctx context.Context, order *entity.Order) (bool, error) {
	capture, err := r.payments.LookupCapture(ctx, order.OrderNumber)
	if errors.Is(err, entity.ErrCaptureNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup capture for %s: %w", order.OrderNumber, err)
	}

	if capture.Status != entity.CaptureCompleted {
		return false, nil
	}
	if !capture.Amount.Equal(order.Totals.Total) {
		slog.WarnContext(ctx, "capture amount does not match order total",
			"order_number", order.OrderNumber,
			"captured", capture.Amount.StringFixed(2),
			"total", order.Totals.Total.StringFixed(2),
		)
		return false, nil
	}

	if _, err := r.settlement.Reconcile(ctx, order.ID, capture.ID); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "order reconciled", "order_id", order.ID, "order_number", order.OrderNumber, "provider_reference", capture.ID)
	return true, nil
}
