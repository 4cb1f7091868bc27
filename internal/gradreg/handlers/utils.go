package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"gradreg/internal/common/clientprotocol"
	"gradreg/pkg/logging"
)

func closeBody(ctx context.Context, body io.ReadCloser, logger *logging.ZapLogger) {
	err := body.Close()
	if err != nil {
		logger.ErrorCtx(ctx, "failed to close body", zap.Error(err))
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&out)
	return out, err
}

func tryWriteResponseJSON(w http.ResponseWriter, responseItem any) error {
	res, err := json.Marshal(responseItem)
	if err != nil {
		return err
	}
	w.Header().Add("Content-Type", "application/json")
	_, err = w.Write(res)
	if err != nil {
		return err
	}
	return nil
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	res, err := json.Marshal(clientprotocol.ErrorResponse{Error: message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(res)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
