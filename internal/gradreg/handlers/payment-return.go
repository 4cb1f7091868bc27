package handlers

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/internal/gradreg/data"
	"gradreg/pkg/logging"
)

// PaymentReturnHandler renders the page the browser lands on after the
// gateway redirect. The return envelope is display-only: state transitions
// happen exclusively through the webhook and the reconciliation sweep, so a
// forged or mangled return can at worst show a stale page.
type PaymentReturnHandler struct {
	service PaymentReturnService
	logger  *logging.ZapLogger
}

type PaymentReturnService interface {
	DecodeForDisplay(rawEnvelope string) (*gatewayprotocol.TransactionResponse, error)
	GetOrderStatus(ctx context.Context, orderID string) (*data.Order, error)
}

func NewPaymentReturnHandler(service PaymentReturnService, logger *logging.ZapLogger) *PaymentReturnHandler {
	return &PaymentReturnHandler{
		service: service,
		logger:  logger,
	}
}

func (h *PaymentReturnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	envelope := h.returnEnvelope(r)
	if envelope == "" {
		h.render(w, "Payment processing", "We are confirming your payment. Check your order status in a moment.")
		return
	}

	response, err := h.service.DecodeForDisplay(envelope)
	if err != nil {
		h.logger.WarnCtx(r.Context(), "could not decode return envelope", zap.Error(err))
		h.render(w, "Payment processing", "We are confirming your payment. Check your order status in a moment.")
		return
	}

	order, err := h.service.GetOrderStatus(r.Context(), response.OrderID)
	if err != nil {
		h.logger.WarnCtx(r.Context(), "could not load order for return page",
			zap.String("orderid", response.OrderID), zap.Error(err))
		h.render(w, "Payment processing", "We are confirming your payment. Check your order status in a moment.")
		return
	}

	switch order.Status {
	case data.PaidStatus:
		h.render(w, "Payment received",
			fmt.Sprintf("Payment for order %s was received. Receipt number: %s.",
				order.OrderID, order.ReceiptNumber))
	case data.FailedStatus:
		h.render(w, "Payment failed",
			fmt.Sprintf("Payment for order %s did not go through. You can retry from the registration page.",
				order.OrderID))
	default:
		h.render(w, "Payment processing",
			fmt.Sprintf("Payment for order %s is being confirmed. Check back in a moment.",
				order.OrderID))
	}
}

func (h *PaymentReturnHandler) returnEnvelope(r *http.Request) string {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			if value := strings.TrimSpace(r.PostForm.Get("transaction_response")); value != "" {
				return value
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("transaction_response"))
}

func (h *PaymentReturnHandler) render(w http.ResponseWriter, title string, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w,
		"<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
