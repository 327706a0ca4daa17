// Package handler exposes the HTTP surface. Handlers decode, call a
// service, and encode; every business rule lives below them.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"curiocity/internal/domain"
	"curiocity/internal/httputil"
)

// msgSuccess is the body shape mutation endpoints return.
var msgSuccess = map[string]string{"msg": "success"}

// handleError maps domain errors onto RFC 7807 responses. Conflict errors
// carry the conflicting resource in extra fields.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		httputil.RespondErrorWithExtras(w, conflict.StatusCode(), conflict.Message, map[string]interface{}{
			"resourceType": conflict.ResourceType,
			"resourceId":   conflict.ResourceID,
		})
		return
	}

	if httpErr, ok := err.(domain.HTTPError); ok {
		status := httpErr.StatusCode()
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err)
		}
		httputil.RespondError(w, status, httpErr.Error())
		return
	}

	logger.Error("unexpected error", "error", err)
	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}
