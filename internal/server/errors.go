package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, lockbox.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lockbox.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, lockbox.ErrBadRequest), errors.Is(err, lockbox.ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, lockbox.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with the status of its kind. Internal
// failures are logged and answered with a generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, status, "internal error")
		return
	}
	s.logger.Debug("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	respondError(w, status, err.Error())
}
