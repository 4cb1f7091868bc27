package clientprotocol

import (
	"time"

	"gradreg/internal/common/gatewayprotocol"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegistrationResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type EmailCheckResponse struct {
	Exists bool `json:"exists"`
}

type OrderCreatedResponse struct {
	OrderID        string                 `json:"order_id"`
	GatewayOrderID string                 `json:"gateway_order_id"`
	Links          []gatewayprotocol.Link `json:"links"`
	MockMode       bool                   `json:"mock_mode"`
}

type OrderStatusResponse struct {
	OrderID           string     `json:"order_id"`
	Status            string     `json:"status"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	GatewayOrderID    string     `json:"gateway_order_id,omitempty"`
	TransactionID     string     `json:"transaction_id,omitempty"`
	PaymentMethodType string     `json:"payment_method_type,omitempty"`
	BankReference     string     `json:"bank_reference,omitempty"`
	ErrorCode         string     `json:"error_code,omitempty"`
	ErrorDesc         string     `json:"error_desc,omitempty"`
	ReceiptNumber     string     `json:"receipt_number,omitempty"`
	ReceiptIssuedAt   *time.Time `json:"receipt_issued_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type ReconcileRequest struct {
	OlderThanMinutes int `json:"older_than_minutes"`
}

type ReconcileSummary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
}
