package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gradreg/internal/common/clientprotocol"
	"gradreg/internal/gradreg/service"
	"gradreg/pkg/logging"
)

type EmailCheckHandler struct {
	service EmailCheckService
	logger  *logging.ZapLogger
}

type EmailCheckService interface {
	CheckEmail(ctx context.Context, email string) (bool, error)
}

func NewEmailCheckHandler(service EmailCheckService, logger *logging.ZapLogger) *EmailCheckHandler {
	return &EmailCheckHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EmailCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	exists, err := h.service.CheckEmail(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		default:
			h.logger.ErrorCtx(r.Context(), "email check error", zap.Error(err))
			writeErrorJSON(w, http.StatusInternalServerError, "failed to check email")
			return
		}
	}

	if err := tryWriteResponseJSON(w, clientprotocol.EmailCheckResponse{Exists: exists}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}
