package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gradreg/internal/common/clientprotocol"
	"gradreg/internal/gradreg/data"
	"gradreg/internal/gradreg/service"
	"gradreg/pkg/logging"
)

type OrderStatusHandler struct {
	service OrderStatusService
	logger  *logging.ZapLogger
}

type OrderStatusService interface {
	GetOrderStatus(ctx context.Context, orderID string) (*data.Order, error)
}

func NewOrderStatusHandler(service OrderStatusService, logger *logging.ZapLogger) *OrderStatusHandler {
	return &OrderStatusHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OrderStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrderStatus(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrOrderNotFound):
			writeErrorJSON(w, http.StatusNotFound, "order not found")
			return
		default:
			h.logger.ErrorCtx(r.Context(), "order status handler error", zap.Error(err))
			writeErrorJSON(w, http.StatusInternalServerError, "failed to get order status")
			return
		}
	}

	if err := tryWriteResponseJSON(w, orderStatusResponse(order)); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}

func orderStatusResponse(order *data.Order) clientprotocol.OrderStatusResponse {
	return clientprotocol.OrderStatusResponse{
		OrderID:           order.OrderID,
		Status:            string(order.Status),
		Amount:            order.Amount.StringFixed(2),
		Currency:          order.Currency,
		GatewayOrderID:    order.GatewayOrderID,
		TransactionID:     order.TransactionID,
		PaymentMethodType: order.PaymentMethodType,
		BankReference:     order.BankReference,
		ErrorCode:         order.ErrorCode,
		ErrorDesc:         order.ErrorDesc,
		ReceiptNumber:     order.ReceiptNumber,
		ReceiptIssuedAt:   order.ReceiptGeneratedAt,
		CreatedAt:         order.CreatedAt,
	}
}
