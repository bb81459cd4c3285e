package entity

import "github.com/shopspring/decimal"

type CaptureStatus string

const (
	CaptureCompleted CaptureStatus = "COMPLETED"
	CaptureDeclined  CaptureStatus = "DECLINED"
)

type CaptureRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	// InvoiceID lets the provider deduplicate captures and lets the
	// reconciler look a capture up by order number.
	InvoiceID string
}

// Capture is the provider's record of a payment attempt.
type Capture struct {
	ID        string
	InvoiceID string
	Status    CaptureStatus
	Amount    decimal.Decimal
	Currency  string
}
