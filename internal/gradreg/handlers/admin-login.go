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

type AdminLoginHandler struct {
	service AdminLoginService
	logger  *logging.ZapLogger
}

type AdminLoginService interface {
	Login(ctx context.Context, username string, password string) (string, error)
}

func NewAdminLoginHandler(service AdminLoginService, logger *logging.ZapLogger) *AdminLoginHandler {
	return &AdminLoginHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AdminLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	input, err := decodeJSON[clientprotocol.AdminLoginRequest](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "error decoding input", zap.Error(err))
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeErrorJSON(w, http.StatusUnauthorized, "invalid credentials")
			return
		default:
			h.logger.ErrorCtx(r.Context(), "admin login error", zap.Error(err))
			writeErrorJSON(w, http.StatusInternalServerError, "failed to log in")
			return
		}
	}

	if err := tryWriteResponseJSON(w, clientprotocol.AdminLoginResponse{Token: token}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}
