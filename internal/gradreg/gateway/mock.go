package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"gradreg/internal/common/gatewayprotocol"
)

// Mock-mode responses keep the rest of the system runnable before real
// credentials exist. Callers can detect the mode via IsConfigured.

func (c *Client) mockCreateOrder(request *gatewayprotocol.OrderRequest) *CreateOrderResult {
	amount, _ := decimal.NewFromString(request.Amount)
	return &CreateOrderResult{
		Response: &gatewayprotocol.OrderResponse{
			OrderID:        request.OrderID,
			GatewayOrderID: "MOCKBD" + request.OrderID,
			MercID:         request.MercID,
			Amount:         amount,
			Currency:       request.Currency,
			Status:         "success",
			Links: []gatewayprotocol.Link{
				{
					Rel:    "payment",
					Href:   "https://mock.gateway.invalid/embeddedsdk",
					Method: "POST",
					Parameters: map[string]string{
						"rdata": "mock-rdata-" + request.OrderID,
					},
				},
			},
		},
	}
}

func (c *Client) mockRetrieveTransaction(orderID string) *RetrieveTransactionResult {
	return &RetrieveTransactionResult{
		Response: &gatewayprotocol.TransactionResponse{
			OrderID:         orderID,
			GatewayOrderID:  "MOCKBD" + orderID,
			TransactionID:   "MOCKTXN" + orderID,
			AuthStatus:      BillDeskAuthStatusSuccess,
			TransactionDate: time.Now().Format(time.RFC3339),
			PaymentMethod:   gatewayprotocol.PaymentMethod{Type: "mock"},
		},
	}
}
