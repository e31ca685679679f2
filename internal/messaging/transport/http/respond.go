package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tesla254/textly-core/internal/messaging/domain"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps the domain error taxonomy onto HTTP status codes.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrThreadNotFound),
		errors.Is(err, domain.ErrAttachmentNotFound),
		errors.Is(err, domain.ErrContactNotFound),
		errors.Is(err, domain.ErrSettingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotRetryable):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrTransmit):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
