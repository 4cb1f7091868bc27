package gatewayprotocol

import "github.com/shopspring/decimal"

// Wire shapes exchanged with the payment gateway. Field names follow the
// gateway's JSON contract, not ours.

type Device struct {
	InitChannel  string `json:"init_channel"`
	IP           string `json:"ip"`
	UserAgent    string `json:"user_agent"`
	AcceptHeader string `json:"accept_header"`
}

type OrderRequest struct {
	MercID         string            `json:"mercid"`
	OrderID        string            `json:"orderid"`
	Amount         string            `json:"amount"`
	OrderDate      string            `json:"order_date"`
	Currency       string            `json:"currency"`
	ReturnURL      string            `json:"ru"`
	AdditionalInfo map[string]string `json:"additional_info"`
	ItemCode       string            `json:"itemcode"`
	Device         Device            `json:"device"`
}

type RetrieveTransactionRequest struct {
	MercID        string `json:"mercid"`
	OrderID       string `json:"orderid"`
	RefundDetails bool   `json:"refund_details"`
}

type Link struct {
	Rel        string            `json:"rel"`
	Href       string            `json:"href"`
	Method     string            `json:"method"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type OrderResponse struct {
	OrderID        string          `json:"orderid"`
	GatewayOrderID string          `json:"bdorderid"`
	MercID         string          `json:"mercid"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	Links          []Link          `json:"links"`
}

type PaymentMethod struct {
	Type string `json:"type"`
}

type TransactionResponse struct {
	OrderID         string          `json:"orderid"`
	GatewayOrderID  string          `json:"bdorderid"`
	TransactionID   string          `json:"transactionid"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	AuthStatus      string          `json:"auth_status"`
	TransactionDate string          `json:"transaction_date"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	BankRefNo       string          `json:"bank_ref_no"`
	ErrorType       string          `json:"transaction_error_type"`
	ErrorCode       string          `json:"transaction_error_code"`
	ErrorDesc       string          `json:"transaction_error_desc"`
}

// ErrorResponse is the decoded body of a non-2xx gateway reply. Errors are
// delivered as signed envelopes as well.
type ErrorResponse struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorDesc string `json:"error_desc"`
	Message   string `json:"message"`
}
