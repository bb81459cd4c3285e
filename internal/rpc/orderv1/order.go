// Package orderv1 is the storefront.order.v1 contract between the checkout
// API and the order service. Amounts are decimal strings in major units.
package orderv1

type Status string

const (
	Status_CREATED   Status = "CREATED"
	Status_COMPLETED Status = "COMPLETED"
	Status_CANCELLED Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatus_UNPAID             PaymentStatus = "UNPAID"
	PaymentStatus_PAID               PaymentStatus = "PAID"
	PaymentStatus_PENDING_COLLECTION PaymentStatus = "PENDING_COLLECTION"
)

type PaymentMethod string

const (
	PaymentMethod_ONLINE           PaymentMethod = "online"
	PaymentMethod_CASH_ON_DELIVERY PaymentMethod = "cash-on-delivery"
)

type LineItem struct {
	ProductId string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Currency  string `json:"currency"`
	Quantity  int32  `json:"quantity"`
	ImageRef  string `json:"image_ref,omitempty"`
}

func (x *LineItem) GetProductId() string {
	if x != nil {
		return x.ProductId
	}
	return ""
}

func (x *LineItem) GetName() string {
	if x != nil {
		return x.Name
	}
	return ""
}

func (x *LineItem) GetUnitPrice() string {
	if x != nil {
		return x.UnitPrice
	}
	return ""
}

func (x *LineItem) GetCurrency() string {
	if x != nil {
		return x.Currency
	}
	return ""
}

func (x *LineItem) GetQuantity() int32 {
	if x != nil {
		return x.Quantity
	}
	return 0
}

func (x *LineItem) GetImageRef() string {
	if x != nil {
		return x.ImageRef
	}
	return ""
}

type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type CreateOrderRequest struct {
	Items           []*LineItem   `json:"items"`
	CustomerName    string        `json:"customer_name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone,omitempty"`
	ShippingAddress *Address      `json:"shipping_address"`
	BillingAddress  *Address      `json:"billing_address"`
	Subtotal        string        `json:"subtotal"`
	ShippingCost    string        `json:"shipping_cost"`
	Tax             string        `json:"tax"`
	Total           string        `json:"total"`
	Currency        string        `json:"currency"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

func (x *CreateOrderRequest) GetItems() []*LineItem {
	if x != nil {
		return x.Items
	}
	return nil
}

type OrderInfo struct {
	Id                string        `json:"id"`
	OrderNumber       string        `json:"order_number"`
	Items             []*LineItem   `json:"items"`
	CustomerName      string        `json:"customer_name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone,omitempty"`
	ShippingAddress   *Address      `json:"shipping_address"`
	BillingAddress    *Address      `json:"billing_address"`
	Subtotal          string        `json:"subtotal"`
	ShippingCost      string        `json:"shipping_cost"`
	Tax               string        `json:"tax"`
	Total             string        `json:"total"`
	Currency          string        `json:"currency"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Status            Status        `json:"status"`
	ProviderReference string        `json:"provider_reference,omitempty"`
	CreatedAt         string        `json:"created_at"`
	UpdatedAt         string        `json:"updated_at"`
}

func (x *OrderInfo) GetItems() []*LineItem {
	if x != nil {
		return x.Items
	}
	return nil
}

type CreateOrderResponse struct {
	Order *OrderInfo `json:"order"`
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool `json:"replayed"`
}

func (x *CreateOrderResponse) GetOrder() *OrderInfo {
	if x != nil {
		return x.Order
	}
	return nil
}

type UpdatePaymentRequest struct {
	OrderId           string        `json:"order_id"`
	ProviderReference string        `json:"provider_reference"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
}

type UpdatePaymentResponse struct {
	Order *OrderInfo `json:"order"`
}

func (x *UpdatePaymentResponse) GetOrder() *OrderInfo {
	if x != nil {
		return x.Order
	}
	return nil
}

type GetOrderRequest struct {
	Id string `json:"id"`
}

type GetOrderByNumberRequest struct {
	OrderNumber string `json:"order_number"`
}

type GetOrderResponse struct {
	Order *OrderInfo `json:"order"`
}

func (x *GetOrderResponse) GetOrder() *OrderInfo {
	if x != nil {
		return x.Order
	}
	return nil
}

type ListAwaitingPaymentRequest struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
	Limit            int32 `json:"limit"`
}

type ListAwaitingPaymentResponse struct {
	Orders []*OrderInfo `json:"orders"`
}

func (x *ListAwaitingPaymentResponse) GetOrders() []*OrderInfo {
	if x != nil {
		return x.Orders
	}
	return nil
}
