// Package walletv1 is the storefront.wallet.v1 contract of the sandbox
// payment wallet.
package walletv1

type CaptureStatus string

const (
	CaptureStatus_COMPLETED CaptureStatus = "COMPLETED"
	CaptureStatus_DECLINED  CaptureStatus = "DECLINED"
)

// ErrorInfo reasons attached to declined captures.
const (
	ErrorReasonAmountLimit = "AMOUNT_LIMIT_EXCEEDED"
	ErrorDomain            = "wallet.storefront"
)

type CaptureRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	InvoiceId   string `json:"invoice_id"`
}

type CaptureInfo struct {
	CaptureId  string        `json:"capture_id"`
	InvoiceId  string        `json:"invoice_id"`
	Amount     string        `json:"amount"`
	Currency   string        `json:"currency"`
	Status     CaptureStatus `json:"status"`
	CapturedAt string        `json:"captured_at"`
}

type CaptureResponse struct {
	Capture *CaptureInfo `json:"capture"`
}

func (x *CaptureResponse) GetCapture() *CaptureInfo {
	if x != nil {
		return x.Capture
	}
	return nil
}

type LookupCaptureRequest struct {
	InvoiceId string `json:"invoice_id"`
}

type LookupCaptureResponse struct {
	Capture *CaptureInfo `json:"capture"`
}

func (x *LookupCaptureResponse) GetCapture() *CaptureInfo {
	if x != nil {
		return x.Capture
	}
	return nil
}
