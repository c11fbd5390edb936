package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"feetax/internal/core"
	"feetax/internal/log"
	"feetax/internal/services"
	"feetax/internal/sheets"
	"feetax/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var decodeErr *store.SourceDecodeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, sheets.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidSettings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs and renders err. Internal errors are not echoed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := log.FromContext(r.Context(), s.logger)
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, log.NewFields())
		msg = http.StatusText(status)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", log.FieldOperation, op, log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
