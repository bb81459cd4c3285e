package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/pkg/cache"
	walletv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/walletv1"
)

// walletServer is a sandbox wallet. Captures are keyed by invoice so a
// retried capture for the same invoice returns the original capture instead
// of charging twice.
type walletServer struct {
	walletv1.UnimplementedWalletServer
	cache        cache.Cache
	declineAbove decimal.Decimal
	ttl          time.Duration
	now          func() time.Time
}

func NewWalletServer(c cache.Cache, declineAbove decimal.Decimal, ttl time.Duration) *walletServer {
	return &walletServer{
		cache:        c,
		declineAbove: declineAbove,
		ttl:          ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *walletServer) Capture(ctx context.Context, req *walletv1.CaptureRequest) (*walletv1.CaptureResponse, error) {
	invoice := strings.TrimSpace(req.InvoiceId)
	if invoice == "" {
		return nil, status.Error(codes.InvalidArgument, "invoice_id is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, status.Errorf(codes.InvalidArgument, "amount %q must be a positive decimal", req.Amount)
	}

	key := s.cache.GenerateKey("capture", invoice)
	if existing, err := s.lookup(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		slog.InfoContext(ctx, "capture replayed", "invoice_id", invoice, "capture_id", existing.CaptureId)
		return &walletv1.CaptureResponse{Capture: existing}, nil
	}

	if amount.GreaterThan(s.declineAbove) {
		slog.WarnContext(ctx, "capture declined", "invoice_id", invoice, "amount", amount.StringFixed(2))
		return nil, declined(amount, s.declineAbove)
	}

	capture := &walletv1.CaptureInfo{
		CaptureId:  uuid.NewString(),
		InvoiceId:  invoice,
		Amount:     amount.StringFixed(2),
		Currency:   strings.ToUpper(req.Currency),
		Status:     walletv1.CaptureStatus_COMPLETED,
		CapturedAt: s.now().Format(time.RFC3339Nano),
	}
	raw, err := json.Marshal(capture)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode capture: %v", err)
	}

	stored, err := s.cache.SetNX(ctx, key, raw, s.ttl)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "store capture: %v", err)
	}
	if !stored {
		existing, err := s.lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &walletv1.CaptureResponse{Capture: existing}, nil
		}
		return nil, status.Error(codes.Aborted, "concurrent capture for invoice, retry")
	}

	slog.InfoContext(ctx, "capture completed",
		"invoice_id", invoice,
		"capture_id", capture.CaptureId,
		"amount", capture.Amount,
	)
	return &walletv1.CaptureResponse{Capture: capture}, nil
}

func (s *walletServer) LookupCapture(ctx context.Context, req *walletv1.LookupCaptureRequest) (*walletv1.LookupCaptureResponse, error) {
	capture, err := s.lookup(ctx, s.cache.GenerateKey("capture", strings.TrimSpace(req.InvoiceId)))
	if err != nil {
		return nil, err
	}
	if capture == nil {
		return nil, status.Errorf(codes.NotFound, "no capture for invoice %s", req.InvoiceId)
	}
	return &walletv1.LookupCaptureResponse{Capture: capture}, nil
}

func (s *walletServer) lookup(ctx context.Context, key string) (*walletv1.CaptureInfo, error) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "read capture: %v", err)
	}
	if raw == "" {
		return nil, nil
	}
	var capture walletv1.CaptureInfo
	if err := json.Unmarshal([]byte(raw), &capture); err != nil {
		return nil, status.Errorf(codes.Internal, "decode capture: %v", err)
	}
	return &capture, nil
}

func declined(amount, limit decimal.Decimal) error {
	st := status.New(codes.FailedPrecondition, fmt.Sprintf("amount %s exceeds limit %s", amount.StringFixed(2), limit.StringFixed(2)))
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   walletv1.ErrorReasonAmountLimit,
		Domain:   walletv1.ErrorDomain,
		Metadata: map[string]string{"limit": limit.StringFixed(2)},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
