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

type RegistrationHandler struct {
	service RegistrationService
	logger  *logging.ZapLogger
}

type RegistrationService interface {
	Register(ctx context.Context, input service.RegistrationInput) (int64, error)
}

func NewRegistrationHandler(service RegistrationService, logger *logging.ZapLogger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *RegistrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	input, err := decodeJSON[service.RegistrationInput](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "error decoding input", zap.Error(err))
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.Register(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.logger.DebugCtx(r.Context(), "registration rejected", zap.Error(err))
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrRegistrationExists):
			h.logger.DebugCtx(r.Context(), "duplicate registration", zap.String("email", input.Email))
			writeErrorJSON(w, http.StatusConflict, "registration already exists")
			return
		default:
			h.logger.ErrorCtx(r.Context(), "registration handler error", zap.Error(err))
			writeErrorJSON(w, http.StatusInternalServerError, "failed to register")
			return
		}
	}

	if err := tryWriteResponseJSON(w, clientprotocol.RegistrationResponse{
		ID:      id,
		Message: "Registered successfully",
	}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}
