package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gradreg/internal/common/clientprotocol"
	"gradreg/internal/gradreg/reconciler"
	"gradreg/pkg/logging"
)

type ReconcileHandler struct {
	sweeper          Sweeper
	defaultOlderThan time.Duration
	logger           *logging.ZapLogger
}

type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (reconciler.Summary, error)
}

func NewReconcileHandler(sweeper Sweeper, defaultOlderThan time.Duration, logger *logging.ZapLogger) *ReconcileHandler {
	return &ReconcileHandler{
		sweeper:          sweeper,
		defaultOlderThan: defaultOlderThan,
		logger:           logger,
	}
}

func (h *ReconcileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	olderThan := h.defaultOlderThan
	if r.ContentLength > 0 {
		input, err := decodeJSON[clientprotocol.ReconcileRequest](r.Body)
		if err != nil {
			h.logger.DebugCtx(r.Context(), "error decoding input", zap.Error(err))
			writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.OlderThanMinutes < 0 {
			writeErrorJSON(w, http.StatusBadRequest, "older_than_minutes must not be negative")
			return
		}
		if input.OlderThanMinutes > 0 {
			olderThan = time.Duration(input.OlderThanMinutes) * time.Minute
		}
	}

	summary, err := h.sweeper.Sweep(r.Context(), olderThan)
	if err != nil {
		h.logger.ErrorCtx(r.Context(), "manual reconciliation failed", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	if err := tryWriteResponseJSON(w, clientprotocol.ReconcileSummary{
		Checked: summary.Checked,
		Updated: summary.Updated,
		Failed:  summary.Failed,
	}); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing response", zap.Error(err))
	}
}
