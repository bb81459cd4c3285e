package entity

import (
	"errors"
	"fmt"
)

// Rejection reasons reported by the delivery validator.
const (
	ReasonMissingField         = "missing-field"
	ReasonInvalidEmail         = "invalid-email"
	ReasonOutOfArea            = "out-of-area"
	ReasonInvalidPaymentMethod = "invalid-payment-method"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrQuoteStale        = errors.New("cart changed since the order was reviewed")
	ErrNoOrder           = errors.New("no order has been created for this checkout")
	ErrNotPayable        = errors.New("checkout is not awaiting payment")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCaptureNotFound   = errors.New("capture not found")
	ErrCaptureDeclined   = errors.New("capture declined")
	ErrCartStoreConflict = errors.New("cart was modified concurrently")
	ErrOrderImmutable    = errors.New("order is in a terminal state")
	// ErrOrderRejected means the backend refused the order request as
	// invalid. Nothing was stored and resending it cannot succeed.
	ErrOrderRejected = errors.New("order rejected by backend")
)

// ValidationError is a user-fixable problem with the checkout form. It is
// always raised before any network call.
type ValidationError struct {
	Reason string
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
}

// ServiceAreaError rejects a delivery city outside the service area.
// errors.As matches it as a *ValidationError too.
type ServiceAreaError struct {
	ValidationError
	City string
}

func NewServiceAreaError(city string) *ServiceAreaError {
	return &ServiceAreaError{
		ValidationError: ValidationError{Reason: ReasonOutOfArea, Field: "city"},
		City:            city,
	}
}

func (e *ServiceAreaError) Error() string {
	return fmt.Sprintf("validation failed: %s (city %q)", e.Reason, e.City)
}

func (e *ServiceAreaError) Unwrap() error {
	return &e.ValidationError
}

// BackendUnavailableError means order creation failed and no order exists.
type BackendUnavailableError struct {
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("order backend unavailable: %v", e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// PaymentProviderError means the capture failed after the order was created.
type PaymentProviderError struct {
	OrderNumber string
	Err         error
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment for order %s failed: %v", e.OrderNumber, e.Err)
}

func (e *PaymentProviderError) Unwrap() error { return e.Err }

// ReconciliationGapError means the provider captured the payment but the
// backend order could not be updated.
type ReconciliationGapError struct {
	OrderID           string
	ProviderReference string
	Err               error
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("order %s captured as %s but not reconciled: %v", e.OrderID, e.ProviderReference, e.Err)
}

func (e *ReconciliationGapError) Unwrap() error { return e.Err }

// IsRetryable reports whether the user can retry the same action.
func IsRetryable(err error) bool {
	var (
		backend *BackendUnavailableError
		payment *PaymentProviderError
		gap     *ReconciliationGapError
	)
	return errors.As(err, &backend) || errors.As(err, &payment) || errors.As(err, &gap)
}
