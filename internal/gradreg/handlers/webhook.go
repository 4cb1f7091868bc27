package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gradreg/pkg/logging"
)

const webhookBodyLimit = 1 << 20

var errEmptyEnvelope = errors.New("delivery carries no transaction envelope")

// WebhookHandler receives asynchronous transaction notifications from the
// payment gateway. The gateway retries until it sees a 2xx, so the handler
// acknowledges every delivery regardless of processing outcome and leaves
// unresolvable orders to the reconciliation sweep.
type WebhookHandler struct {
	service WebhookService
	logger  *logging.ZapLogger
}

type WebhookService interface {
	ProcessWebhook(ctx context.Context, rawEnvelope string) error
}

func NewWebhookHandler(service WebhookService, logger *logging.ZapLogger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	envelope, err := extractEnvelope(r)
	if err != nil {
		h.logger.WarnCtx(r.Context(), "could not extract envelope from webhook delivery", zap.Error(err))
		h.acknowledge(w, r)
		return
	}

	if err := h.service.ProcessWebhook(r.Context(), envelope); err != nil {
		h.logger.ErrorCtx(r.Context(), "webhook processing failed", zap.Error(err))
	}

	h.acknowledge(w, r)
}

func (h *WebhookHandler) acknowledge(w http.ResponseWriter, r *http.Request) {
	if err := tryWriteResponseJSON(w, map[string]string{"status": "received"}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing webhook ack", zap.Error(err))
	}
}

// extractEnvelope pulls the signed transaction envelope out of whichever
// shape the gateway delivered it in: a raw JOSE body, an urlencoded form
// field or a JSON wrapper.
func extractEnvelope(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return envelopeFromValue(r.PostForm.Get("transaction_response"))
	case "application/json":
		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			return "", err
		}
		var wrapper struct {
			TransactionResponse string `json:"transaction_response"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return "", err
		}
		return envelopeFromValue(wrapper.TransactionResponse)
	default:
		// application/jose, text/plain or an unlabelled body all carry the
		// envelope verbatim.
		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			return "", err
		}
		return envelopeFromValue(string(body))
	}
}

func envelopeFromValue(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errEmptyEnvelope
	}
	return trimmed, nil
}
