package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gradreg/internal/common/clientprotocol"
	"gradreg/internal/gradreg/gateway"
	"gradreg/internal/gradreg/service"
	"gradreg/pkg/logging"
)

type OrderCreationHandler struct {
	service OrderCreationService
	logger  *logging.ZapLogger
}

type OrderCreationService interface {
	CreateOrder(
		ctx context.Context,
		registrationID int64,
		clientIP string,
		userAgent string,
	) (*service.OrderCreation, error)
}

type OrderCreationInput struct {
	RegistrationID int64 `json:"registration_id"`
}

func NewOrderCreationHandler(service OrderCreationService, logger *logging.ZapLogger) *OrderCreationHandler {
	return &OrderCreationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OrderCreationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	input, err := decodeJSON[OrderCreationInput](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "error decoding input", zap.Error(err))
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creation, err := h.service.CreateOrder(r.Context(), input.RegistrationID, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.logger.DebugCtx(r.Context(), "order creation rejected", zap.Error(err))
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrRegistrationNotFound):
			writeErrorJSON(w, http.StatusNotFound, "registration not found")
			return
		case errors.Is(err, service.ErrDuplicateOrderID):
			h.logger.ErrorCtx(r.Context(), "order id collision", zap.Error(err))
			writeErrorJSON(w, http.StatusConflict, "failed to allocate an order id")
			return
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			h.logger.ErrorCtx(r.Context(), "gateway unavailable", zap.Error(err))
			writeErrorJSON(w, http.StatusBadGateway, "payment gateway is unavailable, try again later")
			return
		default:
			h.logger.ErrorCtx(r.Context(), "order creation handler error", zap.Error(err))
			writeErrorJSON(w, http.StatusInternalServerError, "failed to create order")
			return
		}
	}

	if err := tryWriteResponseJSON(w, clientprotocol.OrderCreatedResponse{
		OrderID:        creation.OrderID,
		GatewayOrderID: creation.GatewayOrderID,
		Links:          creation.Links,
		MockMode:       creation.MockMode,
	}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}
