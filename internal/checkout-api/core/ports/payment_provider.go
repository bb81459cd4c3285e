package ports

import (
	"context"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
)

// PaymentProvider is the external wallet.
type PaymentProvider interface {
	Capture(ctx context.Context, req entity.CaptureRequest) (*entity.Capture, error)
	// LookupCapture returns entity.ErrCaptureNotFound when nothing was captured for invoiceID.
	LookupCapture(ctx context.Context, invoiceID string) (*entity.Capture, error)
}
