package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	walletv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/walletv1"
)

// GRPCWallet is the payment provider adapter for the wallet service.
type GRPCWallet struct {
	client walletv1.WalletClient
}

func NewGRPCWallet(client walletv1.WalletClient) ports.PaymentProvider {
	return &GRPCWallet{client: client}
}

var _ ports.PaymentProvider = (*GRPCWallet)(nil)

func (w *GRPCWallet) Capture(ctx context.Context, req entity.CaptureRequest) (*entity.Capture, error) {
	res, err := w.client.Capture(ctx, &walletv1.CaptureRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Description: req.Description,
		InvoiceId:   req.InvoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("grpc Capture: %w", mapWalletStatus(err))
	}
	return captureFromProto("Capture", res.GetCapture())
}

func (w *GRPCWallet) LookupCapture(ctx context.Context, invoiceID string) (*entity.Capture, error) {
	res, err := w.client.LookupCapture(ctx, &walletv1.LookupCaptureRequest{InvoiceId: invoiceID})
	if err != nil {
		return nil, fmt.Errorf("grpc LookupCapture: %w", mapWalletStatus(err))
	}
	return captureFromProto("LookupCapture", res.GetCapture())
}

func mapWalletStatus(err error) error {
	st := status.Convert(err)
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", entity.ErrCaptureNotFound, st.Message())
	case codes.FailedPrecondition:
		reason := st.Message()
		for _, d := range st.Details() {
			if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == walletv1.ErrorDomain {
				reason = info.Reason
			}
		}
		return fmt.Errorf("%w: %s", entity.ErrCaptureDeclined, reason)
	}
	return err
}

func captureFromProto(method string, c *walletv1.CaptureInfo) (*entity.Capture, error) {
	if c == nil {
		return nil, fmt.Errorf("grpc %s: empty capture in response", method)
	}
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return nil, fmt.Errorf("grpc %s: bad amount %q: %w", method, c.Amount, err)
	}
	return &entity.Capture{
		ID:        c.CaptureId,
		InvoiceID: c.InvoiceId,
		Status:    entity.CaptureStatus(c.Status),
		Amount:    amount,
		Currency:  c.Currency,
	}, nil
}
