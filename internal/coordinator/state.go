package coordinator

import "github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"

// State is where a checkout session is in the order flow.
type State string

const (
	StateIdle               State = "IDLE"
	StateValidating         State = "VALIDATING"
	StateRejected           State = "REJECTED"
	StateCreating           State = "CREATING"
	StateBackendUnavailable State = "BACKEND_UNAVAILABLE"
	StateCreated            State = "CREATED"
	StateSettling           State = "SETTLING"
	StatePaymentFailed      State = "PAYMENT_FAILED"
	StateUnreconciled       State = "UNRECONCILED"
	StateCompleted          State = "COMPLETED"
)

// Payable reports whether the payment-capture control is offered.
func (s State) Payable() bool {
	return s == StateCreated || s == StatePaymentFailed || s == StateUnreconciled
}

// afterRestart maps a state persisted mid-call to the state the session
// resumes in. Calls in flight when the process died are treated as failed;
// every call is safe to repeat.
func (s State) afterRestart(hasOrder bool) State {
	switch s {
	case StateValidating, StateCreating:
		if hasOrder {
			return StateCreated
		}
		return StateIdle
	case StateSettling:
		return StatePaymentFailed
	}
	return s
}

// Outcome is the externally visible view of a checkout session.
type Outcome struct {
	SessionID         string               `json:"session_id"`
	State             State                `json:"state"`
	OrderID           string               `json:"order_id,omitempty"`
	OrderNumber       string               `json:"order_number,omitempty"`
	PaymentMethod     entity.PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus     entity.PaymentStatus `json:"payment_status,omitempty"`
	Quote             *entity.Quote        `json:"quote,omitempty"`
	ProviderReference string               `json:"provider_reference,omitempty"`
	ConfirmationURL   string               `json:"confirmation_url,omitempty"`
	LastError         string               `json:"last_error,omitempty"`
}

// snapshot is what the checkout log stores per transition.
type snapshot struct {
	Outcome
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	CartPending    bool   `json:"cart_pending,omitempty"`
}
